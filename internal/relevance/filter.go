// Package relevance keeps only items that express personal sentiment about
// an entity. The heuristic stage rejects aggressively; the classification
// stage keeps a whole batch whenever its call or parse fails.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/azure/brand-pulse/internal/fanout"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchSize  = 20
	batchConcurrency  = 3
	maxPromptItemText = 500
)

const classifyPrompt = `You are filtering forum comments for a brand sentiment study about "%s".

Return the ids of ONLY the items that express a clear personal sentiment, opinion or first-hand experience about "%s".
Reject:
- questions or requests for help
- news, announcements or reports
- job postings and promotions
- neutral factual mentions with no opinion

Items:
%s
Return ONLY a JSON array of the relevant ids, e.g. ["id1","id2"]. Return [] if none qualify.`

// Filter runs the two-stage relevance filter
type Filter struct {
	classifier llm.Classifier
	batchSize  int
}

func NewFilter(classifier llm.Classifier, batchSize int) *Filter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Filter{
		classifier: classifier,
		batchSize:  batchSize,
	}
}

// Filter returns the items that pass both stages, in input order
func (f *Filter) Filter(ctx context.Context, entity string, items []models.CandidateItem) []models.CandidateItem {
	survivors := f.PreFilter(entity, items)
	logrus.WithField("entity", entity).Infof("Heuristic pre-filter kept %d of %d items", len(survivors), len(items))
	if len(survivors) == 0 {
		return nil
	}

	batches := chunk(survivors, f.batchSize)
	kept := fanout.Map(ctx, batchConcurrency, batches, func(ctx context.Context, batch []models.CandidateItem) []models.CandidateItem {
		return f.classifyBatch(ctx, entity, batch)
	})

	var out []models.CandidateItem
	for _, k := range kept {
		out = append(out, k...)
	}
	logrus.WithField("entity", entity).Infof("Classification kept %d of %d items", len(out), len(survivors))
	return out
}

// PreFilter applies only the heuristic stage
func (f *Filter) PreFilter(entity string, items []models.CandidateItem) []models.CandidateItem {
	var out []models.CandidateItem
	for _, item := range items {
		if reason := RejectReason(item.Text, entity); reason != "" {
			logrus.WithFields(logrus.Fields{"id": item.ID, "reason": reason}).Debug("Pre-filter rejected item")
			continue
		}
		out = append(out, item)
	}
	return out
}

func (f *Filter) classifyBatch(ctx context.Context, entity string, batch []models.CandidateItem) []models.CandidateItem {
	var sb strings.Builder
	for _, item := range batch {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", item.ID, clip(item.Text, maxPromptItemText)))
	}

	resp, err := f.classifier.Complete(ctx, fmt.Sprintf(classifyPrompt, entity, entity, sb.String()))
	if err != nil {
		logrus.WithField("batch_size", len(batch)).Warnf("Relevance classification failed, keeping batch: %v", err)
		return batch
	}

	var ids []string
	if err := llm.DecodeArray(resp, &ids); err != nil {
		logrus.WithField("batch_size", len(batch)).Warnf("Unparseable relevance verdict, keeping batch: %v", err)
		return batch
	}

	relevant := make(map[string]bool, len(ids))
	for _, id := range ids {
		relevant[strings.Trim(strings.TrimSpace(id), "[]")] = true
	}

	var out []models.CandidateItem
	for _, item := range batch {
		if relevant[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
