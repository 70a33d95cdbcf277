package app

import (
	"context"

	"github.com/calehh/impact-app/blob"
	"github.com/calehh/impact-app/ledger"
	"github.com/calehh/impact-app/state"
)

func (app *App) CreateSubmission(ctx context.Context, in state.NewSubmission) (*state.Submission, error) {
	sub, err := app.db.Create(ctx, in)
	if err != nil {
		app.metrics.submission("rejected")
		return nil, err
	}
	app.metrics.submission("created")
	return sub, nil
}

// UploadProof stores a proof file and returns its public URL.
func (app *App) UploadProof(ctx context.Context, data []byte, name string) (string, error) {
	url, err := app.blobs.Put(ctx, data, name)
	if err != nil {
		app.metrics.upload("rejected")
		return "", err
	}
	app.metrics.upload("stored")
	return url, nil
}

func (app *App) Submission(ctx context.Context, id string) (*state.Submission, error) {
	return app.db.Get(ctx, id)
}

type SubmissionPage struct {
	Items    []state.Submission `json:"items"`
	Total    uint64             `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

func (app *App) Submissions(ctx context.Context, opts state.ListOptions) (*SubmissionPage, error) {
	items, total, err := app.db.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	page := &SubmissionPage{Items: items, Total: total, Page: opts.Page, PageSize: opts.PageSize}
	if page.PageSize <= 0 {
		page.PageSize = state.DefaultPageSize
	}
	if page.PageSize > state.MaxPageSize {
		page.PageSize = state.MaxPageSize
	}
	if page.Page < 0 {
		page.Page = 0
	}
	return page, nil
}

// Verify compares an approved submission with its ledger record.
func (app *App) Verify(ctx context.Context, id string) (*ledger.Verification, error) {
	sub, err := app.db.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return app.ledger.Verify(ctx, sub)
}

// BlobReader returns the proof store when its files are served by this node.
func (app *App) BlobReader() (blob.Reader, bool) {
	r, ok := app.blobs.(blob.Reader)
	return r, ok
}
