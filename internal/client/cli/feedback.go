package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/feedbackd/internal/client/api"
)

const timeLayout = "2006-01-02 15:04:05"

// Upload prompts for the feedback fields and the optional media files. Empty
// answers leave a field out.
func (a *App) Upload(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}

	in, err := a.inputFeedback("")
	if err != nil {
		a.report(ctx, err)
		return err
	}

	f, err := a.api.Upload(ctx, in)
	if err != nil {
		a.report(ctx, err)
		return err
	}

	fmt.Fprintf(a.out, "Feedback added: %s\n", f.ID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}

	items, err := a.api.List(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "No feedback yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRATING\tCOMMENT\tMEDIA\tCREATED")
	for _, f := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, rating(f.Rating), ellipsis(text(f.Comment), 40), mediaFlags(&f), f.CreatedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, id string) error {
	if !a.requireLogin() {
		return nil
	}

	id, err := a.askID(id)
	if err != nil {
		return err
	}

	f, err := a.api.Get(ctx, id)
	if err != nil {
		a.report(ctx, err)
		return err
	}

	printFeedback(a.out, f)
	return nil
}

// Update prompts for the fields to change. Empty answers keep the stored
// value.
func (a *App) Update(ctx context.Context, id string) error {
	if !a.requireLogin() {
		return nil
	}

	id, err := a.askID(id)
	if err != nil {
		return err
	}

	in, err := a.inputFeedback(" (empty keeps the current value)")
	if err != nil {
		a.report(ctx, err)
		return err
	}

	f, err := a.api.Update(ctx, id, in)
	if err != nil {
		a.report(ctx, err)
		return err
	}

	fmt.Fprintln(a.out, "Feedback updated")
	printFeedback(a.out, f)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if !a.requireLogin() {
		return nil
	}

	id, err := a.askID(id)
	if err != nil {
		return err
	}

	if err := a.api.Delete(ctx, id); err != nil {
		a.report(ctx, err)
		return err
	}

	fmt.Fprintln(a.out, "Feedback deleted")
	return nil
}

func (a *App) askID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	return getSimpleText(a.reader, "Enter feedback id", a.out)
}

func (a *App) inputFeedback(hint string) (api.FeedbackInput, error) {
	var in api.FeedbackInput

	r, err := getSimpleText(a.reader, "Enter rating"+hint, a.out)
	if err != nil {
		return in, err
	}
	if in.Rating, err = parseRating(r); err != nil {
		return in, err
	}

	comment, err := getSimpleText(a.reader, "Enter comment"+hint, a.out)
	if err != nil {
		return in, err
	}
	in.Comment = optionalText(comment)

	if in.VideoPath, err = getSimpleText(a.reader, "Enter path to video file"+hint, a.out); err != nil {
		return in, err
	}
	if in.AudioPath, err = getSimpleText(a.reader, "Enter path to audio file"+hint, a.out); err != nil {
		return in, err
	}
	return in, nil
}

func printFeedback(w io.Writer, f *api.Feedback) {
	fmt.Fprintf(w, "ID:       %s\n", f.ID)
	fmt.Fprintf(w, "Rating:   %s\n", rating(f.Rating))
	fmt.Fprintf(w, "Comment:  %s\n", text(f.Comment))
	fmt.Fprintf(w, "Video:    %s\n", text(f.Video))
	fmt.Fprintf(w, "Audio:    %s\n", text(f.Audio))
	fmt.Fprintf(w, "Created:  %s\n", f.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Updated:  %s\n", f.UpdatedAt.Local().Format(timeLayout))
}

func rating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func text(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func ellipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func mediaFlags(f *api.Feedback) string {
	switch {
	case f.Video != nil && f.Audio != nil:
		return "video,audio"
	case f.Video != nil:
		return "video"
	case f.Audio != nil:
		return "audio"
	}
	return "-"
}
