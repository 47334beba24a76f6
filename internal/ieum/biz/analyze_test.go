package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

const validRecord = `{
  "summary": "출시 일정과 예산을 논의했다.",
  "decisions": ["4월 출시 확정"],
  "actionItems": [{"task": "예산안 작성", "assignee": "김민수", "deadline": "2024-03-15", "status": "pending"}],
  "openIssues": ["외주 계약 범위", {"title": "QA 인력", "lastMentioned": "2024-03-01", "owner": "이지은"}],
  "followUpMeeting": {"title": "예산 검토", "date": "2024-03-20", "time": "14:00", "attendees": ["김민수", "이지은"]},
  "insights": {
    "meetingType": "planning",
    "sentiment": "positive",
    "keyTopics": ["출시", "예산"],
    "risks": [{"level": "medium", "description": "QA 일정 지연"}],
    "recommendations": ["QA 인력 조기 확보"]
  }
}`

func TestParseMeetingRecord(t *testing.T) {
	rec, err := ParseMeetingRecord(validRecord)
	require.NoError(t, err)

	assert.Equal(t, "출시 일정과 예산을 논의했다.", rec.Summary)
	assert.Equal(t, []string{"4월 출시 확정"}, rec.Decisions)
	require.Len(t, rec.ActionItems, 1)
	assert.Equal(t, "김민수", rec.ActionItems[0].Assignee)
	require.Len(t, rec.OpenIssues, 2)
	assert.Equal(t, OpenIssue{Title: "외주 계약 범위"}, rec.OpenIssues[0])
	assert.Equal(t, "이지은", rec.OpenIssues[1].Owner)
	require.NotNil(t, rec.FollowUpMeeting)
	assert.Equal(t, "14:00", rec.FollowUpMeeting.Time)
	assert.Equal(t, "medium", rec.Insights.Risks[0].Level)
}

func TestParseMeetingRecord_RejectsMalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"fenced", "```json\n" + validRecord + "\n```"},
		{"prose", "Here is the analysis: " + validRecord},
		{"array", `[` + validRecord + `]`},
		{"missing key", `{"summary": "s", "decisions": [], "actionItems": [], "openIssues": []}`},
		{"wrong type", `{"summary": 1, "decisions": [], "actionItems": [], "openIssues": [], "insights": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMeetingRecord(tt.raw)
			assert.ErrorIs(t, err, errors.ErrSchema)
		})
	}
}

func TestAnalyzer_ShortTranscript(t *testing.T) {
	chat := &fakeChat{}
	a := NewAnalyzer(chat, &fakeEmbedder{}, store.NewMemoryIndex(testDim))

	rec, err := a.Analyze(context.Background(), " 네 ")
	require.NoError(t, err)
	assert.Equal(t, shortTranscriptSummary, rec.Summary)
	assert.Zero(t, chat.Calls())
}

func TestAnalyzer_UsesJSONMode(t *testing.T) {
	chat := &fakeChat{replies: []string{validRecord}}
	a := NewAnalyzer(chat, &fakeEmbedder{}, store.NewMemoryIndex(testDim))

	rec, err := a.Analyze(context.Background(), "오늘 회의에서는 출시 일정을 논의했습니다.")
	require.NoError(t, err)
	assert.Equal(t, "출시 일정과 예산을 논의했다.", rec.Summary)

	require.Len(t, chat.opts, 1)
	assert.True(t, chat.opts[0].JSONMode)
	assert.Contains(t, chat.LastUserPrompt(), "오늘 회의에서는 출시 일정을 논의했습니다.")
}

func TestAnalyzer_SchemaViolation(t *testing.T) {
	chat := &fakeChat{replies: []string{"```json\n{}\n```"}}
	a := NewAnalyzer(chat, &fakeEmbedder{}, store.NewMemoryIndex(testDim))

	_, err := a.Analyze(context.Background(), "충분히 긴 회의 기록입니다.")
	assert.ErrorIs(t, err, errors.ErrSchema)
}

func TestAnalyzer_CompletionFailure(t *testing.T) {
	a := NewAnalyzer(&fakeChat{err: errUpstream}, &fakeEmbedder{}, store.NewMemoryIndex(testDim))

	_, err := a.Analyze(context.Background(), "충분히 긴 회의 기록입니다.")
	assert.ErrorIs(t, err, errors.ErrExternalService)
}

func TestAnalyzer_AnalyzeAndStore(t *testing.T) {
	index := store.NewMemoryIndex(testDim)
	embedder := &fakeEmbedder{}
	a := NewAnalyzer(&fakeChat{replies: []string{validRecord}}, embedder, index)

	res, err := a.AnalyzeAndStore(context.Background(), "충분히 긴 회의 기록입니다.", false)
	require.NoError(t, err)
	assert.Nil(t, res.Stored)
	assert.Zero(t, index.Len())
	assert.Zero(t, embedder.calls.Load())

	res, err = a.AnalyzeAndStore(context.Background(), "충분히 긴 회의 기록입니다.", true)
	require.NoError(t, err)
	require.NotNil(t, res.Stored)
	assert.Equal(t, 1, index.Len())

	stored := res.Stored
	assert.Equal(t, "history", stored.Category)
	assert.True(t, strings.HasPrefix(stored.Title, "analysis-"))
	assert.True(t, strings.HasSuffix(stored.Title, ".json"))
	assert.Equal(t, "analysis://"+stored.Title, stored.FileURL)
	assert.Contains(t, stored.Content, "출시 일정과 예산을 논의했다.")
	assert.Nil(t, stored.Vector)

	// 存储的分析结果可被问答检索到
	docs, err := index.Query(context.Background(), store.TitleFilter(stored.Title), 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, stored.ID, docs[0].ID)
}
