package coins

// Navigator annotates a coin with its neighbours inside the filtered ranked
// window, so a detail view can step through exactly the rows the listing that
// linked to it displayed.
type Navigator struct {
	repo *Repository
}

// NewNavigator creates a navigator over the given repository
func NewNavigator(repo *Repository) *Navigator {
	return &Navigator{repo: repo}
}

// WithNavigation sets PreviousSlug and NextSlug on the coin relative to the ordered
// sequence produced by the same search and window parameters as the listing.
// A coin outside the sequence (unranked, rank beyond the window, or filtered
// out by search) gets neither neighbour. The next link additionally requires
// the neighbour's position to stay inside the window, mirroring the previous
// link's natural lower bound at position zero.
func (n *Navigator) WithNavigation(coin *Coin, search string, length int) error {
	entries, err := n.repo.ListNavigationSlugs(search, length)
	if err != nil {
		return err
	}

	position := -1
	for i, entry := range entries {
		if entry.ID == coin.ID {
			position = i
			break
		}
	}
	if position == -1 {
		return nil
	}

	if position > 0 {
		slug := entries[position-1].Slug
		coin.PreviousSlug = &slug
	}
	if position+1 < length && position+1 < len(entries) {
		slug := entries[position+1].Slug
		coin.NextSlug = &slug
	}

	return nil
}
