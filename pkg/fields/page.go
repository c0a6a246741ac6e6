package fields

import "context"

// Page is the request/response protocol between orchestration and a page
// context. Only descriptors and uids cross it, never element handles. Every
// operation is idempotent against an unchanged page.
type Page interface {
	// URL identifies the page for site policy checks.
	URL() string

	// ListFields returns eligible controls in document order. Sensitive
	// controls are dropped unless includeSensitive is set.
	ListFields(ctx context.Context, includeSensitive bool) ([]Descriptor, error)

	// DescribeField re-extracts one control from the live page.
	DescribeField(ctx context.Context, uid string) (Descriptor, error)

	// FillField writes value into the control identified by uid.
	FillField(ctx context.Context, uid, value string, allowSensitive bool) error

	// HasFillableForms reports whether ListFields(ctx, false) is non-empty
	// without assigning any uid.
	HasFillableForms(ctx context.Context) (bool, error)
}
