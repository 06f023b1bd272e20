package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/feedroll/feedroll/pkg/domain"
)

// categoryTags collects entry tags with scheme and label, lost in gofeed.Item.Categories.
// Tags are indexed like the translated items. Not safe for concurrent use, one per parse.
type categoryTags struct {
	byItem [][]domain.Tag
}

// newGofeedParser returns a parser whose Atom and RSS translations fill tags
func newGofeedParser(tags *categoryTags) *gofeed.Parser {
	fp := gofeed.NewParser()
	fp.AtomTranslator = &atomTranslator{tags: tags}
	fp.RSSTranslator = &rssTranslator{tags: tags}
	return fp
}

// forItem returns collected tags of the i-th item, false if the item has none
func (c *categoryTags) forItem(i int) ([]domain.Tag, bool) {
	if i >= len(c.byItem) || len(c.byItem[i]) == 0 {
		return nil, false
	}
	return c.byItem[i], true
}

type atomTranslator struct {
	gofeed.DefaultAtomTranslator
	tags *categoryTags
}

func (t *atomTranslator) Translate(feed any) (*gofeed.Feed, error) {
	res, err := t.DefaultAtomTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	af, ok := feed.(*atom.Feed)
	if !ok || len(af.Entries) != len(res.Items) {
		return res, nil
	}
	t.tags.byItem = make([][]domain.Tag, len(af.Entries))
	for i, e := range af.Entries {
		if e == nil {
			continue
		}
		for _, c := range e.Categories {
			if c != nil {
				t.tags.byItem[i] = appendTag(t.tags.byItem[i], c.Term, c.Scheme, c.Label)
			}
		}
	}
	return res, nil
}

type rssTranslator struct {
	gofeed.DefaultRSSTranslator
	tags *categoryTags
}

// Translate keeps the category domain attribute as the tag scheme
func (t *rssTranslator) Translate(feed any) (*gofeed.Feed, error) {
	res, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	rf, ok := feed.(*rss.Feed)
	if !ok || len(rf.Items) != len(res.Items) {
		return res, nil
	}
	t.tags.byItem = make([][]domain.Tag, len(rf.Items))
	for i, item := range rf.Items {
		if item == nil {
			continue
		}
		for _, c := range item.Categories {
			if c != nil {
				t.tags.byItem[i] = appendTag(t.tags.byItem[i], c.Value, c.Domain, "")
			}
		}
	}
	return res, nil
}

func appendTag(tags []domain.Tag, term, scheme, label string) []domain.Tag {
	term = strings.TrimSpace(term)
	if term == "" {
		return tags
	}
	return append(tags, domain.Tag{Term: term, Scheme: strings.TrimSpace(scheme), Label: strings.TrimSpace(label)})
}
