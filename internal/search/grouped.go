package search

// Group is one group of matches within a section.
type Group struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Matches []Match `json:"matches"`
}

// Section is one section of the grouped result view.
type Section struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Groups []Group `json:"groups"`
}

// Count returns the number of matches in the section.
func (s Section) Count() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Matches)
	}
	return n
}

// GroupMatches nests matches by section, then by group. Sections and groups
// appear in order of their first match, so the total count is unchanged.
func GroupMatches(matches []Match) []Section {
	var sections []Section
	sectionIdx := make(map[string]int)
	groupIdx := make(map[string]int)

	for _, m := range matches {
		si, ok := sectionIdx[m.SectionID]
		if !ok {
			si = len(sections)
			sectionIdx[m.SectionID] = si
			sections = append(sections, Section{ID: m.SectionID, Label: m.SectionLabel})
		}

		gkey := m.SectionID + "\x00" + m.GroupID
		gi, ok := groupIdx[gkey]
		if !ok {
			gi = len(sections[si].Groups)
			groupIdx[gkey] = gi
			sections[si].Groups = append(sections[si].Groups, Group{ID: m.GroupID, Label: m.GroupLabel})
		}

		sections[si].Groups[gi].Matches = append(sections[si].Groups[gi].Matches, m)
	}
	return sections
}

// Grouped returns the current result set nested by section and group.
func (r *Registry) Grouped() []Section {
	return GroupMatches(r.Matches())
}
