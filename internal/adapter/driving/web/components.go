package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/reviewq/internal/adapter/driving/web/viewmodel"
)

const pageStyle = `body{font-family:sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:2rem}
th,td{text-align:left;padding:.3rem .6rem;border-bottom:1px solid #ddd}
.test-red{color:#c00}.test-green{color:#080}
.notice{background:#fff8e0;padding:.5rem 1rem;border-left:4px solid #e0a000}
.locked{color:#888}`

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// QueuePage renders the review queue split into its sections.
func QueuePage(q vm.QueueViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>Review queue <small>(%d)</small></h1>", q.Total); err != nil {
			return err
		}
		if q.NoticeHTML != "" {
			if _, err := io.WriteString(w, `<div class="notice">`); err != nil {
				return err
			}
			// NoticeHTML is sanitized by RenderNotice.
			if err := templ.Raw(q.NoticeHTML).Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `</div>`); err != nil {
				return err
			}
		}
		for _, s := range q.Sections {
			if err := section(s).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func section(s vm.SectionViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h2 id="%s">%s</h2>`, templ.EscapeString(s.Anchor), templ.EscapeString(s.Title)); err != nil {
			return err
		}
		if len(s.Reviews) == 0 {
			_, err := io.WriteString(w, `<p class="empty">Nothing here.</p>`)
			return err
		}
		if _, err := io.WriteString(w, "<table><thead><tr><th>Review</th><th>Source</th><th>Owner</th><th>State</th><th>Age</th><th>Votes</th><th>Test</th><th>Lock</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, r := range s.Reviews {
			if err := reviewRow(r).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
}

func reviewRow(r vm.ReviewCardViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		source := r.Source
		if r.Series != "" {
			source += " / " + r.Series
		}

		testCell := ""
		if r.TestStatus != "" {
			testCell = fmt.Sprintf(`<span class="test-%s">%s</span>`,
				templ.EscapeString(r.TestColor), templ.EscapeString(r.TestStatus))
		}

		lockCell := ""
		if r.LockedBy != "" {
			lockCell = `<span class="locked">` + templ.EscapeString(r.LockedBy) + `</span>`
		}

		_, err := fmt.Fprintf(w,
			`<tr id="review-%d"><td><a href="%s">%s</a></td><td>%s</td><td>%s</td><td title="%s">%s</td><td>%s</td><td>+%d / -%d</td><td>%s</td><td>%s</td></tr>`,
			r.ID,
			templ.EscapeString(string(templ.URL(r.URL))),
			templ.EscapeString(r.Title),
			templ.EscapeString(source),
			templ.EscapeString(r.Owner),
			templ.EscapeString(r.StateSentence),
			templ.EscapeString(r.State),
			templ.EscapeString(r.Age),
			r.PositiveVotes, r.NegativeVotes,
			testCell,
			lockCell,
		)
		return err
	})
}
