package ingredient

import "regexp"

// Vocabulary is the fixed set of ingredient names the recipe corpus uses as
// boolean columns. Every normalized ingredient belongs to this set.
var Vocabulary = []string{
	"Seafood", "Oyster", "Crab", "Salad", "Squid", "Shrimp", "Lobster",
	"Carrot", "Cabbage", "Pumpkin", "Squash", "Tomato", "Potato", "Radish",
	"Cucumber", "Mushroom", "Bread", "Egg", "Pork", "Beef", "Chicken",
	"Tuna", "Salmon",
}

// DefaultIngredients is substituted whenever detection or normalization
// produces nothing, so matching never runs on an empty set.
var DefaultIngredients = []string{"Chicken", "Tomato", "Egg"}

// objectMappings maps common object-detector labels to an ingredient.
// An empty value means the label is recognized but carries no ingredient
// (cutlery, furniture, people) and the token is dropped.
var objectMappings = map[string]string{
	"banana":   "Banana",
	"apple":    "Apple",
	"sandwich": "Bread",
	"orange":   "Orange",
	"broccoli": "Cabbage",
	"carrot":   "Carrot",
	"hot dog":  "Pork",
	"pizza":    "Bread",
	"donut":    "Bread",
	"cake":     "Bread",

	"bottle":     "Beverage",
	"wine glass": "Wine",
	"cup":        "Beverage",
	"fork":       "",
	"knife":      "",
	"spoon":      "",
	"bowl":       "",

	"cow":   "Beef",
	"sheep": "Lamb",
	"bird":  "Chicken",

	"person":        "",
	"dining table":  "",
	"chair":         "",
	"car":           "",
	"truck":         "",
	"bicycle":       "",
	"motorcycle":    "",
	"bus":           "",
	"train":         "",
	"traffic light": "",
	"stop sign":     "",
	"bench":         "",
	"potted plant":  "Herbs",
	"oven":          "",
	"toaster":       "",
	"microwave":     "",
	"refrigerator":  "",
	"sink":          "",
}

// fuzzyRule maps a stem pattern to an ingredient. Rules are tried in order
// and the first match wins.
type fuzzyRule struct {
	pattern    *regexp.Regexp
	ingredient string
}

var fuzzyRules = []fuzzyRule{
	{regexp.MustCompile(`^chick`), "Chicken"},
	{regexp.MustCompile(`^beef`), "Beef"},
	{regexp.MustCompile(`^pork`), "Pork"},
	{regexp.MustCompile(`^egg`), "Egg"},
	{regexp.MustCompile(`^bread`), "Bread"},
	{regexp.MustCompile(`^tomat`), "Tomato"},
	{regexp.MustCompile(`^potat`), "Potato"},
	{regexp.MustCompile(`^carrot`), "Carrot"},
	{regexp.MustCompile(`^mushroom`), "Mushroom"},
	{regexp.MustCompile(`^shrimp`), "Shrimp"},
	{regexp.MustCompile(`^crab`), "Crab"},
	{regexp.MustCompile(`^fish`), "Seafood"},
	{regexp.MustCompile(`^salm`), "Salmon"},
	{regexp.MustCompile(`^tuna`), "Tuna"},
	{regexp.MustCompile(`^squid`), "Squid"},
	{regexp.MustCompile(`^lobst`), "Lobster"},
	{regexp.MustCompile(`^oyster`), "Oyster"},
	{regexp.MustCompile(`^cabba`), "Cabbage"},
	{regexp.MustCompile(`^cucumb`), "Cucumber"},
	{regexp.MustCompile(`^pump`), "Pumpkin"},
	{regexp.MustCompile(`^squa`), "Squash"},
	{regexp.MustCompile(`^radi`), "Radish"},
	{regexp.MustCompile(`^sala`), "Salad"},
}

// keywordRule associates a category keyword with candidate ingredients in
// priority order. The first vocabulary-valid candidate is used.
type keywordRule struct {
	keyword     string
	ingredients []string
}

var keywordRules = []keywordRule{
	{"vegetable", []string{"Carrot", "Cabbage", "Tomato"}},
	{"green", []string{"Cucumber", "Cabbage"}},
	{"root", []string{"Carrot", "Potato", "Radish"}},
	{"leafy", []string{"Cabbage", "Salad"}},

	{"meat", []string{"Beef", "Pork", "Chicken"}},
	{"poultry", []string{"Chicken"}},
	{"red meat", []string{"Beef", "Pork"}},
	{"fish", []string{"Salmon", "Tuna"}},
	{"seafood", []string{"Seafood", "Shrimp", "Crab", "Lobster", "Squid", "Oyster"}},

	{"grain", []string{"Bread"}},
	{"dairy", []string{"Egg"}},
	{"protein", []string{"Egg", "Chicken", "Beef", "Pork"}},

	{"orange", []string{"Carrot", "Pumpkin", "Squash"}},
	{"red", []string{"Tomato", "Beef"}},
	{"yellow", []string{"Squash", "Egg"}},
	{"brown", []string{"Mushroom", "Potato", "Bread"}},
	{"white", []string{"Egg", "Mushroom", "Bread", "Chicken"}},

	{"round", []string{"Tomato", "Potato", "Egg"}},
	{"long", []string{"Carrot", "Cucumber"}},

	{"ball", []string{"Tomato", "Potato"}},
	{"stick", []string{"Carrot"}},
	{"plant", []string{"Cabbage", "Salad"}},
}

var vocabularySet = func() map[string]bool {
	set := make(map[string]bool, len(Vocabulary))
	for _, name := range Vocabulary {
		set[name] = true
	}
	return set
}()

// InVocabulary reports whether name is a valid corpus ingredient.
func InVocabulary(name string) bool {
	return vocabularySet[name]
}
