package biz

import (
	"context"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/json"
)

const (
	dashboardScanLimit = 1000
	dashboardMeetings  = 5
	dashboardIssues    = 4
	dashboardAgenda    = 4
	// summaryPreviewRunes 是无法解析的记录截取的摘要长度。
	summaryPreviewRunes = 100

	defaultIssueMentioned = "최근"
	defaultIssueOwner     = "미정"
)

// MeetingSummary 是首页展示的一次会议。
type MeetingSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

// Dashboard 汇总最近存储的会议分析。
type Dashboard struct {
	Meetings        []MeetingSummary `json:"meetings"`
	OpenIssues      []OpenIssue      `json:"openIssues"`
	SuggestedAgenda []string         `json:"suggestedAgenda"`
}

// BuildDashboard 从历史类别中读取分析记录，按创建时间倒序汇总最近的会议、
// 未决议题和建议议程。内容不是合法记录的条目只展示截断后的文本。
func BuildDashboard(ctx context.Context, index store.SearchIndex) (*Dashboard, error) {
	docs, err := index.Query(ctx, store.Eq(store.FieldCategory, string(CategoryHistory)), dashboardScanLimit)
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(err)
	}

	records := docs[:0]
	for _, d := range docs {
		if strings.HasPrefix(d.FileURL, analysisURLPrefix) {
			records = append(records, d)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	dash := &Dashboard{
		Meetings:        make([]MeetingSummary, 0, dashboardMeetings),
		OpenIssues:      make([]OpenIssue, 0, dashboardIssues),
		SuggestedAgenda: make([]string, 0, dashboardAgenda),
	}
	for _, d := range records {
		if len(dash.Meetings) == dashboardMeetings {
			break
		}
		meeting := MeetingSummary{
			ID:    d.ID,
			Title: d.Title,
			Date:  dateOf(d.CreatedAt),
		}

		var rec MeetingRecord
		if err := json.Unmarshal([]byte(d.Content), &rec); err != nil {
			logger.Warnw("stored analysis is not a meeting record", "title", d.Title, "error", err.Error())
			meeting.Summary = textutil.TruncateString(d.Content, summaryPreviewRunes)
			dash.Meetings = append(dash.Meetings, meeting)
			continue
		}
		meeting.Summary = rec.Summary
		dash.Meetings = append(dash.Meetings, meeting)

		for _, issue := range rec.OpenIssues {
			if len(dash.OpenIssues) == dashboardIssues {
				break
			}
			if issue.LastMentioned == "" {
				issue.LastMentioned = defaultIssueMentioned
			}
			if issue.Owner == "" {
				issue.Owner = defaultIssueOwner
			}
			dash.OpenIssues = append(dash.OpenIssues, issue)
		}
		for _, agenda := range rec.Insights.Recommendations {
			if len(dash.SuggestedAgenda) == dashboardAgenda {
				break
			}
			dash.SuggestedAgenda = append(dash.SuggestedAgenda, agenda)
		}
	}
	return dash, nil
}

func dateOf(createdAt string) string {
	if len(createdAt) > 10 {
		return createdAt[:10]
	}
	return createdAt
}
