package api

import (
	"sort"
	"strings"
)

// OtherCategory is assigned to jerseys that match no category rule.
const OtherCategory = "Other"

type categoryRule struct {
	name     string
	keywords []string
}

// Title keywords are matched case-sensitively, as the shop writes them.
var categoryRules = []categoryRule{
	{name: "Club Teams", keywords: []string{"Manchester", "Inter Milan", "Celtic", "Ajax", "Bayern"}},
	{name: "Kids", keywords: []string{"KIDS"}},
	{name: "Retro", keywords: []string{"Retro"}},
	{name: "Special Editions", keywords: []string{"Special Edition", "Concept Edition"}},
}

// categoriesFor returns the names of every rule matching title, sorted.
func categoriesFor(title string) []string {
	var out []string
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				out = append(out, rule.name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// primaryCategory is the first matching category, or OtherCategory.
func primaryCategory(title string) string {
	if cats := categoriesFor(title); len(cats) > 0 {
		return cats[0]
	}
	return OtherCategory
}
