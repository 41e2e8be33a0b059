package crawler

// runState is the mutable progress of one Run.
type runState struct {
	state      CrawlState
	seen       map[string]struct{}
	startPage  int
	anchorURL  string
	anchorPage int
}

// newRunState derives where to continue from a loaded checkpoint. A jersey
// newer than the last completed page means that page was interrupted, so the
// crawl restarts on it and skips through the jersey's URL.
func newRunState(loaded CrawlState, totalPages int) *runState {
	if loaded.LastCompletedPage < 0 {
		loaded.LastCompletedPage = 0
	}
	loaded.TotalPages = totalPages
	r := &runState{
		state:     loaded,
		seen:      make(map[string]struct{}, len(loaded.Jerseys)),
		startPage: loaded.LastCompletedPage + 1,
	}
	for _, j := range loaded.Jerseys {
		r.seen[j.URL] = struct{}{}
	}
	if last, ok := loaded.LastJersey(); ok && last.Page > loaded.LastCompletedPage {
		r.startPage = last.Page
		r.anchorURL = last.URL
		r.anchorPage = last.Page
	}
	if r.startPage < 1 {
		r.startPage = 1
	}
	return r
}

// resumeRefs drops the references already handled on an interrupted page.
// The skip is inclusive of the anchor. When the anchor is gone from the page
// the whole page is returned; already stored URLs are filtered by seen.
func (r *runState) resumeRefs(page int, refs []AlbumRef) ([]AlbumRef, bool) {
	if r.anchorURL == "" || page != r.anchorPage {
		return refs, true
	}
	anchor := r.anchorURL
	r.anchorURL = ""
	for i, ref := range refs {
		if ref.URL == anchor {
			return refs[i+1:], true
		}
	}
	return refs, false
}

func (r *runState) has(url string) bool {
	_, ok := r.seen[url]
	return ok
}

func (r *runState) append(j Jersey) {
	r.state.Jerseys = append(r.state.Jerseys, j)
	r.seen[j.URL] = struct{}{}
}

func (r *runState) completePage(page int) {
	if page > r.state.LastCompletedPage {
		r.state.LastCompletedPage = page
	}
}
