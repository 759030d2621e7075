package shared

const (
	TYPE_ARTICLE  = "article"
	TYPE_BLOG     = "blog"
	TYPE_BOOK     = "book"
	TYPE_EVENT    = "event"
	TYPE_GALLERY  = "gallery"
	TYPE_JOURNAL  = "journal"
	TYPE_MEDIAHIT = "media_hit"
	TYPE_NEWS     = "news"
	TYPE_PODCAST  = "podcast"

	CURRENCY_NGN = "ngn"
	CURRENCY_USD = "usd"

	USER_AGENT = "Beacon/1.0 <github.com/seedlight/beacon>"
)

// ContentTypes lists every listing type served by the site, in the order
// the navigation presents them.
var ContentTypes = []string{
	TYPE_BLOG,
	TYPE_NEWS,
	TYPE_EVENT,
	TYPE_GALLERY,
	TYPE_BOOK,
	TYPE_JOURNAL,
	TYPE_ARTICLE,
	TYPE_MEDIAHIT,
	TYPE_PODCAST,
}
