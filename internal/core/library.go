package core

// EpisodeLister lists the episode files of a show directory in series order.
type EpisodeLister interface {
	ListEpisodes(path string) ([]string, error)
}

// EpisodeListerFunc adapts a function to EpisodeLister.
type EpisodeListerFunc func(path string) ([]string, error)

// ListEpisodes calls f(path).
func (f EpisodeListerFunc) ListEpisodes(path string) ([]string, error) {
	return f(path)
}
