// Package report renders a session's progress for export.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pymentor/internal/analysis"
	"pymentor/internal/gateway/repository/artifact"
	"pymentor/internal/requirement"
	"pymentor/internal/session"
)

const (
	MarkdownName = "report.md"
	JSONName     = "report.json"
)

type Report struct {
	SessionID    string               `json:"sessionId"`
	GeneratedAt  time.Time            `json:"generatedAt"`
	Progress     requirement.Progress `json:"progress"`
	Requirements []requirement.Item   `json:"requirements"`
	Analysis     *analysis.Result     `json:"analysis,omitempty"`
	Exchanges    int                  `json:"exchanges"`
	Code         string               `json:"code"`
}

// Build summarizes snap at time now.
func Build(snap session.Snapshot, now time.Time) Report {
	reqs := make([]requirement.Item, len(snap.Requirements))
	copy(reqs, snap.Requirements)
	r := Report{
		SessionID:    snap.SessionID,
		GeneratedAt:  now.UTC(),
		Progress:     snap.Progress,
		Requirements: reqs,
		Exchanges:    len(snap.Messages) / 2,
		Code:         snap.Code,
	}
	if snap.Analysis != nil {
		a := snap.Analysis.Clone()
		r.Analysis = &a
	}
	return r
}

func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (r Report) Markdown() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Rapport de progression\n\n")
	fmt.Fprintf(&b, "- Session : `%s`\n", r.SessionID)
	fmt.Fprintf(&b, "- Généré le : %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Progression : %d/%d (%d%%)\n", r.Progress.Completed, r.Progress.Total, r.Progress.Percent)
	fmt.Fprintf(&b, "- Échanges avec le tuteur : %d\n\n", r.Exchanges)

	b.WriteString("## Exigences\n\n")
	for _, it := range r.Requirements {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] **%s** (%s) : %s\n", mark, it.Title, it.Category, it.Description)
	}

	if r.Analysis != nil {
		writeList(&b, "Erreurs", r.Analysis.Errors)
		writeList(&b, "Suggestions", r.Analysis.Suggestions)
		writeList(&b, "Concepts utilisés", r.Analysis.ConceptsUsed)
	}

	b.WriteString("\n## Code\n\n```python\n")
	b.WriteString(strings.TrimRight(r.Code, "\n"))
	b.WriteString("\n```\n")
	return b.Bytes()
}

func writeList(b *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// Export is the outcome of writing one report.
type Export struct {
	SessionID string   `json:"sessionId"`
	Names     []string `json:"names"`
	URL       string   `json:"url"`
}

// Exporter writes reports to an artifact store.
type Exporter struct {
	store artifact.Store
	// fallbackURL formats a gateway download link when the store has none.
	fallbackURL func(sessionID, name string) string
	now         func() time.Time
	log         *zap.Logger
}

func NewExporter(store artifact.Store, fallbackURL func(sessionID, name string) string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallbackURL == nil {
		fallbackURL = DownloadPath
	}
	return &Exporter{store: store, fallbackURL: fallbackURL, now: time.Now, log: logger.Named("report")}
}

// DownloadPath is the gateway route that streams a stored report.
func DownloadPath(sessionID, name string) string {
	return "/reports/" + sessionID + "/" + name
}

// Export writes the Markdown and JSON renderings and returns a link to
// the Markdown one.
func (e *Exporter) Export(ctx context.Context, snap session.Snapshot) (Export, error) {
	if e == nil || e.store == nil {
		return Export{}, fmt.Errorf("report: exporter is not configured")
	}
	r := Build(snap, e.now())
	raw, err := r.JSON()
	if err != nil {
		return Export{}, fmt.Errorf("report: encode: %w", err)
	}
	if err := e.store.Put(ctx, snap.SessionID, MarkdownName, r.Markdown(), "text/markdown; charset=utf-8"); err != nil {
		return Export{}, fmt.Errorf("report: put %s: %w", MarkdownName, err)
	}
	if err := e.store.Put(ctx, snap.SessionID, JSONName, raw, "application/json"); err != nil {
		return Export{}, fmt.Errorf("report: put %s: %w", JSONName, err)
	}
	url, err := e.store.GetURL(ctx, snap.SessionID, MarkdownName)
	if err != nil {
		e.log.Warn("presign failed, using gateway link", zap.String("session", snap.SessionID), zap.Error(err))
		url = ""
	}
	if url == "" {
		url = e.fallbackURL(snap.SessionID, MarkdownName)
	}
	e.log.Info("report exported",
		zap.String("session", snap.SessionID),
		zap.Int("percent", r.Progress.Percent),
	)
	return Export{SessionID: snap.SessionID, Names: []string{MarkdownName, JSONName}, URL: url}, nil
}
