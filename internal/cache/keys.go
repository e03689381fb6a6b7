package cache

// Cache key builders. Kept in one place so key shapes never drift apart
// between the read paths that populate them and the write paths that
// invalidate them.

// ProfileKey is the detail entry for one account.
func ProfileKey(id string) string { return "profile:" + id }

// PostKey is the detail entry for one post.
func PostKey(id string) string { return "post:" + id }

// PostListKey is one page of an author's post listing.
func PostListKey(author, page string) string { return "list:" + author + ":" + page }

// PostListPrefix covers every cached page of an author's post listing.
func PostListPrefix(author string) string { return "list:" + author + ":" }

// ListPrefix covers every cached listing page in a namespace.
func ListPrefix() string { return "list:" }

// CommentsKey is the comment listing for one post.
func CommentsKey(postID string) string { return "comments:" + postID }

// RepliesKey is the reply listing under one top-level comment.
func RepliesKey(commentID string) string { return "replies:" + commentID }

// StoriesKey is the active story listing for one account.
func StoriesKey(author string) string { return "stories:" + author }

// ServiceKey is the detail entry for one service.
func ServiceKey(id string) string { return "service:" + id }

// AdKey is the detail entry for one advertisement.
func AdKey(id string) string { return "ad:" + id }
