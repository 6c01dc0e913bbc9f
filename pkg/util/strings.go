package util

// AppendUniqueStrings appends the items not already present in s, keeping first-seen order
func AppendUniqueStrings(s []string, items ...string) []string {
	for _, item := range items {
		if !ContainsString(s, item) {
			s = append(s, item)
		}
	}

	return s
}

func ContainsString(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}

	return false
}
