package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/data/session"
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/tg/tgCallback"
	"github.com/cardkeep/cardkeep_bot/internal/transport/telegram"
	customMW "github.com/cardkeep/cardkeep_bot/internal/transport/telegram/middleware"
	"github.com/cardkeep/cardkeep_bot/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// free text is routed by the dialog step stored in the session
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
				return c.Send("something went wrong, try again later")
			}
			return c.Send("start with one of the commands: /start")
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingCardSearch:
			return b.ctrl.ProcessCardSearch(c)
		case model.ExpectingSeriesName:
			return b.ctrl.ProcessSeriesName(c)
		case model.ExpectingTxQuantity:
			return b.ctrl.ProcessTxQuantity(c)
		case model.ExpectingTxCostBasis:
			return b.ctrl.ProcessTxCostBasis(c)
		case model.ExpectingEditQuantity:
			return b.ctrl.ProcessEditQuantity(c)
		case model.ExpectingEditCostBasis:
			return b.ctrl.ProcessEditCostBasis(c)
		default:
			slog.Error("unexpected chatSession action", slog.String("rqID", rqID), slog.Any("action", chatSession.Action))
			return c.Send("start with one of the commands: /start")
		}
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		if i := strings.Index(data, "|"); i >= 0 {
			data = data[:i]
		}

		defer func() {
			_ = c.Respond()
		}()

		switch {
		case data == tgCallback.BuyCard:
			return b.ctrl.InitBuy(c)
		case data == tgCallback.SellCard:
			return b.ctrl.InitSell(c)
		case data == tgCallback.ExportReport:
			return b.ctrl.ExportReport(c)
		case data == tgCallback.RemoveHolding:
			return b.ctrl.RemoveHolding(c)
		case data == tgCallback.RetryLoad:
			return b.ctrl.RetryCardLoad(c)
		case data == tgCallback.BackToList:
			return b.ctrl.BackToCollection(c)
		case strings.HasPrefix(data, tgCallback.OpenCardPrefix):
			return b.ctrl.OpenCard(c, strings.TrimPrefix(data, tgCallback.OpenCardPrefix))
		case strings.HasPrefix(data, tgCallback.AddCardPrefix):
			return b.ctrl.AddCard(c, strings.TrimPrefix(data, tgCallback.AddCardPrefix))
		case strings.HasPrefix(data, tgCallback.SetPrefix):
			return b.ctrl.ShowSetCards(c, strings.TrimPrefix(data, tgCallback.SetPrefix))
		case strings.HasPrefix(data, tgCallback.EditTxPrefix):
			return b.ctrl.InitEditTransaction(c, strings.TrimPrefix(data, tgCallback.EditTxPrefix))
		case strings.HasPrefix(data, tgCallback.DeleteTxPrefix):
			return b.ctrl.DeleteTransaction(c, strings.TrimPrefix(data, tgCallback.DeleteTxPrefix))
		case strings.HasPrefix(data, tgCallback.CollectionPrefix):
			return b.ctrl.SelectCollection(c, strings.TrimPrefix(data, tgCallback.CollectionPrefix))
		case strings.HasPrefix(data, tgCallback.PrevPagePrefix):
			return b.showPage(c, strings.TrimPrefix(data, tgCallback.PrevPagePrefix))
		case strings.HasPrefix(data, tgCallback.NextPagePrefix):
			return b.showPage(c, strings.TrimPrefix(data, tgCallback.NextPagePrefix))
		default:
			slog.Warn("unknown callback", slog.String("data", data))
			return c.Respond()
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/collections", b.ctrl.Collections)
	b.bot.Handle("/search", b.ctrl.InitCardSearch)
	b.bot.Handle("/sets", b.ctrl.InitSetsBrowse)
	b.bot.Handle("/reports", b.ctrl.Reports)
	b.bot.Handle("/cancel", b.ctrl.Cancel)
}

func (b *TGBot) showPage(c tele.Context, pageStr string) error {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 0 {
		page = 0
	}
	return b.ctrl.ShowCollectionPage(c, page)
}
