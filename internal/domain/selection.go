package domain

import "encoding/json"

// Selection is an ordered, duplicate-free set of candidate ISBNs. The zero
// value is an empty selection.
type Selection struct {
	items []string
}

// NewSelection builds a selection, normalising ISBNs and dropping blanks and
// duplicates.
func NewSelection(isbns ...string) Selection {
	var s Selection
	for _, isbn := range isbns {
		s.Add(isbn)
	}
	return s
}

// Add appends isbn unless it is blank or already present. Callers admit the
// candidate with ValidateSelectionAttempt first.
func (s *Selection) Add(isbn string) bool {
	isbn = NormalizeISBN(isbn)
	if isbn == "" || s.Contains(isbn) {
		return false
	}
	s.items = append(s.items, isbn)
	return true
}

// Remove drops isbn and reports whether it was present.
func (s *Selection) Remove(isbn string) bool {
	isbn = NormalizeISBN(isbn)
	for i, v := range s.items {
		if v == isbn {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.items = nil
}

func (s Selection) Contains(isbn string) bool {
	isbn = NormalizeISBN(isbn)
	for _, v := range s.items {
		if v == isbn {
			return true
		}
	}
	return false
}

func (s Selection) Len() int {
	return len(s.items)
}

// Items returns a copy of the ISBNs in insertion order.
func (s Selection) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON reads a JSON array of ISBNs with the same rules as NewSelection.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var isbns []string
	if err := json.Unmarshal(data, &isbns); err != nil {
		return err
	}
	*s = NewSelection(isbns...)
	return nil
}
