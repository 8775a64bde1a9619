package dbConverter

import (
	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/dbModel"
)

func ConvertReportLink(link dbModel.ReportLink) model.ReportLink {
	return model.ReportLink{
		CollectionID: link.CollectionID,
		DownloadLink: link.DownloadLink,
		CreatedAt:    link.CreatedAt,
	}
}

func ConvertReportLinks(links []dbModel.ReportLink) []model.ReportLink {
	res := make([]model.ReportLink, 0, len(links))
	for _, link := range links {
		res = append(res, ConvertReportLink(link))
	}
	return res
}
