package scanner

// Category tags a request with the kind of operation it serves, which selects the
// credential used for it
type Category string

const (
	CategoryAuthorization Category = "AUTHORIZATION"
	CategoryDeposits      Category = "DEPOSITS"
	CategorySubscription  Category = "SUBSCRIPTION"

	// PrimaryCategory is the default category and the fallback for unknown ones
	PrimaryCategory = CategoryAuthorization
)

// Credentials maps categories to API keys
type Credentials map[Category]string

// NewCredentials converts a plain string map, as found in configuration
func NewCredentials(keys map[string]string) Credentials {
	creds := make(Credentials, len(keys))
	for category, key := range keys {
		creds[Category(category)] = key
	}
	return creds
}

// Resolve returns the key for category, falling back to the primary category's key
func (c Credentials) Resolve(category Category) (string, bool) {
	if category == "" {
		category = PrimaryCategory
	}
	if key := c[category]; key != "" {
		return key, true
	}
	key := c[PrimaryCategory]
	return key, key != ""
}

// Valid reports whether the primary credential is present
func (c Credentials) Valid() bool {
	return c[PrimaryCategory] != ""
}

// Clone returns an independent copy
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
