// Package checkpoint records which URLs a job has already attempted so that an
// interrupted or repeated run skips them.
//
// Deduplication is attempt based: a URL is marked whether its fetch succeeded
// or failed, and a marked URL is never requested again against the same log.
// The log lives next to the failure and mismatch logs as
// {split}_checked_imgs.txt and is only ever appended to.
package checkpoint
