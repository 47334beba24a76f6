package biz

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/textutil"
	"github.com/kart-io/ieum/pkg/llm"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/json"
	"github.com/kart-io/logger"
)

const (
	// minTranscriptRunes 是可分析记录的最小长度。
	minTranscriptRunes = 5
	// analysisURLPrefix 标记由分析写入、没有原始文件的历史条目。
	analysisURLPrefix = "analysis://"
)

// MeetingRecord 是会议分析结果。
type MeetingRecord struct {
	Summary         string           `json:"summary"`
	Decisions       []string         `json:"decisions"`
	ActionItems     []ActionItem     `json:"actionItems"`
	OpenIssues      []OpenIssue      `json:"openIssues"`
	FollowUpMeeting *FollowUpMeeting `json:"followUpMeeting,omitempty"`
	Insights        Insights         `json:"insights"`
}

// ActionItem 是待办事项。
type ActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}

// OpenIssue 是未决议题。
type OpenIssue struct {
	Title         string `json:"title"`
	LastMentioned string `json:"lastMentioned"`
	Owner         string `json:"owner"`
}

// UnmarshalJSON 同时接受对象和仅含标题的字符串。
func (o *OpenIssue) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*o = OpenIssue{Title: title}
		return nil
	}
	type plain OpenIssue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = OpenIssue(p)
	return nil
}

// FollowUpMeeting 是后续会议安排。
type FollowUpMeeting struct {
	Title     string   `json:"title"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Attendees []string `json:"attendees"`
}

// Insights 是会议洞察。
type Insights struct {
	MeetingType     string   `json:"meetingType"`
	Sentiment       string   `json:"sentiment"`
	KeyTopics       []string `json:"keyTopics"`
	Risks           []Risk   `json:"risks"`
	Recommendations []string `json:"recommendations"`
}

// Risk 是带严重度的风险。
type Risk struct {
	Level       string `json:"level"`
	Description string `json:"description"`
}

// requiredRecordKeys 是模型输出必须包含的键。
var requiredRecordKeys = []string{"summary", "decisions", "actionItems", "openIssues", "insights"}

// AnalyzeResult 是分析结果，Stored 非空时记录已写入索引。
type AnalyzeResult struct {
	Record *MeetingRecord  `json:"record"`
	Stored *store.Document `json:"stored,omitempty"`
}

// Analyzer 将会议记录转换为结构化结果。
type Analyzer struct {
	chat     llm.ChatProvider
	embedder llm.EmbeddingProvider
	index    store.SearchIndex
	now      func() time.Time
}

// NewAnalyzer 创建分析器。
func NewAnalyzer(chat llm.ChatProvider, embedder llm.EmbeddingProvider, index store.SearchIndex) *Analyzer {
	return &Analyzer{
		chat:     chat,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
}

// Analyze 发起一次 JSON 模式的 Completion 并严格解析结果。
func (a *Analyzer) Analyze(ctx context.Context, transcript string) (*MeetingRecord, error) {
	if utf8.RuneCountInString(strings.TrimSpace(transcript)) < minTranscriptRunes {
		return &MeetingRecord{Summary: shortTranscriptSummary}, nil
	}

	raw, err := llm.Complete(ctx, a.chat,
		analyzeSystemPrompt,
		fmt.Sprintf(analyzeUserPrompt, transcript),
		llm.CompleteOptions{JSONMode: true})
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("completion: %w", err))
	}
	return ParseMeetingRecord(raw)
}

// ParseMeetingRecord 解析模型输出，非对象、缺少键或类型不符都返回 ErrSchema。
func ParseMeetingRecord(raw string) (*MeetingRecord, error) {
	var keys map[string]interface{}
	if err := json.UnmarshalObject([]byte(raw), &keys); err != nil {
		return nil, errors.ErrSchema.WithCause(err)
	}
	for _, k := range requiredRecordKeys {
		if _, ok := keys[k]; !ok {
			return nil, errors.ErrSchema.WithMessagef("meeting record is missing %q", k)
		}
	}

	var rec MeetingRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &rec); err != nil {
		return nil, errors.ErrSchema.WithCause(err)
	}
	return &rec, nil
}

// AnalyzeAndStore 分析记录，并在 store 为 true 时把结果写入历史类别。
func (a *Analyzer) AnalyzeAndStore(ctx context.Context, transcript string, persist bool) (*AnalyzeResult, error) {
	rec, err := a.Analyze(ctx, transcript)
	if err != nil {
		return nil, err
	}
	result := &AnalyzeResult{Record: rec}
	if !persist {
		return result, nil
	}

	doc, err := a.store(ctx, rec)
	if err != nil {
		return nil, err
	}
	result.Stored = doc
	return result, nil
}

func (a *Analyzer) store(ctx context.Context, rec *MeetingRecord) (*store.Document, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal meeting record: %w", err)
	}

	vector, err := a.embedder.EmbedSingle(ctx, string(payload))
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("embed meeting record: %w", err))
	}

	now := a.now().UTC()
	title := fmt.Sprintf("analysis-%s-%s.json", now.Format("20060102"), uuid.NewString())
	url := analysisURLPrefix + title
	doc := store.Document{
		ID:        textutil.EncodeChunkID(url, 0),
		Title:     title,
		Content:   string(payload),
		Category:  string(CategoryHistory),
		FileURL:   url,
		CreatedAt: now.Format(time.RFC3339),
		Size:      textutil.HumanSize(int64(len(payload))),
		Vector:    vector,
	}

	results, err := a.index.Upload(ctx, []store.Document{doc})
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(err)
	}
	if failed := store.Failed(results); len(failed) > 0 {
		return nil, errors.ErrIngestFailed.WithCause(failed[0].Err)
	}

	logger.Infow("meeting analysis stored", "title", title)
	doc.Vector = nil
	return &doc, nil
}
