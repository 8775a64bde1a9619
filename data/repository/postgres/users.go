package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/data/repository"
	"github.com/cardkeep/cardkeep_bot/internal/model/dbModel"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func (r *Postgres) RegUser(ctx context.Context, chatID int64) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users(chat_id) VALUES($1) RETURNING user_id`

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RegUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("RegUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, chatID).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return userID, nil
}

// SetDefaultCollection remembers which remote collection a chat works with
// by default, so commands don't have to name it every time.
func (r *Postgres) SetDefaultCollection(ctx context.Context, chatID int64, collectionID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SetDefaultCollection"
	query := `
		UPDATE users
		SET default_collection_id = $1
		WHERE chat_id = $2
	`

	slog.Debug("SetDefaultCollection start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SetDefaultCollection failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetDefaultCollection completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, collectionID, chatID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetDefaultCollection(ctx context.Context, chatID int64) (collectionID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetDefaultCollection"
	query := `SELECT user_id, chat_id, default_collection_id FROM users WHERE chat_id = $1`

	slog.Debug("GetDefaultCollection start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetDefaultCollection failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDefaultCollection completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	user := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, chatID).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}

	if user.DefaultCollectionID == nil {
		return "", repository.ErrNotFound
	}

	return *user.DefaultCollectionID, nil
}

func (r *Postgres) InsertReportLink(ctx context.Context, chatID int64, collectionID, downloadLink string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertReportLink"
	query := `
		INSERT INTO report_links(user_id, collection_id, download_link)
		SELECT user_id, $2, $3 FROM users WHERE chat_id = $1
	`

	slog.Debug("InsertReportLink start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertReportLink failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertReportLink completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, chatID, collectionID, downloadLink)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetReportLinks(ctx context.Context, chatID int64, limit int) (links []dbModel.ReportLink, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetReportLinks"
	query := `
		SELECT report_id, user_id, collection_id, download_link, dt_create
		FROM report_links
		JOIN users USING(user_id)
		WHERE chat_id = $1
		ORDER BY dt_create DESC
		LIMIT $2
	`

	slog.Debug("GetReportLinks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetReportLinks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetReportLinks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	links = make([]dbModel.ReportLink, 0, limit)
	for rows.Next() {
		var link dbModel.ReportLink
		err = rows.StructScan(&link)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, nil
}
