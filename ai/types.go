package ai

// CategoryOther is the fallback category for content the analyzer cannot
// place. Bookmarks in it never get an automatic collection.
const CategoryOther = "Other"

// Categories defines the valid categories for analyzed bookmarks.
// The analyzer must pick exactly one; anything outside the list is coerced
// to CategoryOther.
var Categories = []string{
	"Technology",
	"Programming",
	"Design",
	"Business",
	"Science",
	"Health",
	"Education",
	"News",
	"Entertainment",
	"Finance",
	"Marketing",
	"Security",
	"DevOps",
	"AI/ML",
	"Data",
	"Mobile",
	"Web",
	CategoryOther,
}

// ValidCategory reports whether a category is in the taxonomy.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
