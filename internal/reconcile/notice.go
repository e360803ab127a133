package reconcile

import (
	"errors"
	"fmt"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

type NoticeKind string

const (
	NoticeSuccess       NoticeKind = "success"
	NoticePartial       NoticeKind = "partial"
	NoticeFailure       NoticeKind = "failure"
	NoticeAuthorization NoticeKind = "authorization"
	NoticeValidation    NoticeKind = "validation"
	NoticeNetwork       NoticeKind = "network"
)

// Notice is one dismissible message for the UI.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Notifier receives exactly one Notice per terminal outcome.
type Notifier func(Notice)

func batchNotice(r BatchResult) Notice {
	switch {
	case r.Failed == 0:
		return Notice{Kind: NoticeSuccess, Text: fmt.Sprintf("%d records updated", r.Succeeded)}
	case r.Succeeded > 0:
		return Notice{Kind: NoticePartial, Text: fmt.Sprintf("%d of %d updated, %d failed", r.Succeeded, r.Total, r.Failed)}
	default:
		return Notice{Kind: NoticeFailure, Text: fmt.Sprintf("update failed for all %d records", r.Total)}
	}
}

func bulkNotice(res models.BulkUpdateResult) Notice {
	text := res.Message
	if text == "" {
		text = fmt.Sprintf("%d records updated", res.UpdatedCount)
	}
	return Notice{Kind: NoticeSuccess, Text: text}
}

func errorNotice(err error) Notice {
	var (
		v *ValidationError
		a *AuthorizationError
		n *NetworkError
	)
	switch {
	case errors.As(err, &v):
		return Notice{Kind: NoticeValidation, Text: v.Msg}
	case errors.As(err, &a):
		return Notice{Kind: NoticeAuthorization, Text: a.Msg}
	case errors.As(err, &n):
		return Notice{Kind: NoticeNetwork, Text: err.Error()}
	default:
		return Notice{Kind: NoticeFailure, Text: err.Error()}
	}
}
