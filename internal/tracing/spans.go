package tracing

// Span attribute keys.
const (
	// Reconcile
	AttrReconcilePasses = "reconcile.passes"
	AttrPagesWithErrors = "reconcile.pages_with_errors"
	AttrPagesFlagged    = "reconcile.pages_flagged"
	AttrResourceType    = "form.resource_type"
	AttrPage            = "form.page"

	// Draft
	AttrDraftKey     = "draft.key"
	AttrDraftOutcome = "draft.outcome"

	// Submit
	AttrRequestID  = "submit.request_id"
	AttrRecordID   = "submit.record_id"
	AttrHTTPStatus = "http.status_code"
	AttrErrorCount = "submit.error_count"

	AttrErrorMessage = "error.message"
)

// Span name prefixes.
const (
	SpanPrefixReconcile = "reconcile."
	SpanPrefixDraft     = "draft."
	SpanPrefixSubmit    = "submit."
	SpanPrefixRepo      = "repo."
)

// Span event names.
const (
	EventWritesApplied = "reconcile.writes_applied"
	EventDraftFound    = "draft.found"
	EventCacheHit      = "cache.hit"
)
