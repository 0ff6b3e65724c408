package matching

// MatchedFilenames returns the matched filenames of the first configuration
// of the first exposure time. It never returns nil; an index with several
// configurations should be inspected with Single or Configurations instead.
func MatchedFilenames(index *Index, kind Kind) []string {
	cfg := index.First()
	if cfg == nil {
		return []string{}
	}
	return cfg.Filenames(kind)
}
