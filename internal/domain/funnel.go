package domain

// FunnelBucket is the mutually exclusive state a funnel payment falls into.
type FunnelBucket string

const (
	BucketHasSubscription FunnelBucket = "has_subscription"
	BucketDeleted         FunnelBucket = "deleted_not_resubscribed"
	BucketFormSigned      FunnelBucket = "form_signed"
	BucketPaidNotSigned   FunnelBucket = "paid_not_signed"
)

// Buckets lists every bucket in precedence order.
var Buckets = []FunnelBucket{
	BucketHasSubscription,
	BucketDeleted,
	BucketFormSigned,
	BucketPaidNotSigned,
}
