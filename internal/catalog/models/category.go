package models

import (
	"fmt"
	"slices"

	dErrors "chanfilter/pkg/domain-errors"
)

// Category is a classification bucket. The domain is closed: -1 through 12.
type Category int16

const (
	// CategoryUnclassified marks a channel the external classifier has not
	// labelled yet. It is meaningful for statistics only; policy evaluation
	// treats it like any other code.
	CategoryUnclassified Category = -1

	CategoryComputerScience  Category = 0
	CategoryCoreEngineering  Category = 1
	CategoryMedicine         Category = 2
	CategoryBusiness         Category = 3
	CategoryArtsHumanities   Category = 4
	CategoryCompetitiveExams Category = 5
	CategoryHighSchool       Category = 6
	CategoryOther            Category = 7
)

// Codes 8 through 12 are reserved by the catalog schema for future buckets.
const (
	minCategory Category = CategoryUnclassified
	maxCategory Category = 12
)

var categoryNames = map[Category]string{
	CategoryUnclassified:     "unclassified",
	CategoryComputerScience:  "computer_science",
	CategoryCoreEngineering:  "core_engineering",
	CategoryMedicine:         "medicine",
	CategoryBusiness:         "business",
	CategoryArtsHumanities:   "arts_humanities",
	CategoryCompetitiveExams: "competitive_exams",
	CategoryHighSchool:       "high_school",
	CategoryOther:            "other",
}

// ParseCategory validates a raw integer code.
func ParseCategory(code int) (Category, error) {
	if code < int(minCategory) || code > int(maxCategory) {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("category %d out of range [%d, %d]", code, minCategory, maxCategory))
	}
	return Category(code), nil
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category_%d", int16(c))
}

// CategorySet is an ordered, duplicate-free list of categories.
type CategorySet []Category

// DefaultCategories is the set attached to identities absent from the catalog.
func DefaultCategories() CategorySet {
	return CategorySet{CategoryUnclassified}
}

// NewCategorySet validates raw codes and drops repeats, keeping first-seen order.
func NewCategorySet(codes []int64) (CategorySet, error) {
	set := make(CategorySet, 0, len(codes))
	for _, code := range codes {
		c, err := ParseCategory(int(code))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(set, c) {
			set = append(set, c)
		}
	}
	return set, nil
}

// Contains reports membership.
func (s CategorySet) Contains(c Category) bool {
	return slices.Contains(s, c)
}

// Ints returns the codes as plain ints for wire encoding.
func (s CategorySet) Ints() []int {
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = int(c)
	}
	return out
}

// Int64s returns the codes for database array encoding.
func (s CategorySet) Int64s() []int64 {
	out := make([]int64, len(s))
	for i, c := range s {
		out[i] = int64(c)
	}
	return out
}

// Clone returns an independent copy.
func (s CategorySet) Clone() CategorySet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}
