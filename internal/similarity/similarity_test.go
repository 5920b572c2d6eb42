package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "email", "email", 1.0},
		{"case only", "Email", "EMAIL", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"kitten sitting", "kitten", "sitting", 1 - 3.0/7.0},
		{"disjoint", "abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{{"phone", "phoneNumber"}, {"Account", "acct"}, {"zip", "postal_code"}}
	for _, p := range pairs {
		assert.InDelta(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), 1e-9)
	}
}

func TestConceptuallySimilar(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"primary_email", "Email", true},
		{"contactPhoneNumber", "phone", true},
		{"account_id", "accountId", true},
		{"Mailing-City", "city", true},
		{"first_name", "last_name", false},
		{"homepage", "page", false},
		{"email", "phone", false},
		{"", "email", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, ConceptuallySimilar(tt.a, tt.b))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "phonenumber", NormalizeKey("Phone Number"))
	assert.Equal(t, "firstname", NormalizeKey("first_name"))
	assert.Equal(t, "emailaddress", NormalizeKey("E-mail.Address"))
	assert.Equal(t, "telephone", NormalizeKey("Téléphone"))
	assert.Equal(t, "", NormalizeKey(" _-. "))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"billing", "street", "2"}, Tokenize("billingStreet_2"))
	assert.Equal(t, []string{"http", "server"}, Tokenize("HTTPServer"))
	assert.Equal(t, []string{"first", "name"}, Tokenize("First Name"))
	assert.Equal(t, []string{"email"}, Tokenize("email"))
	assert.Empty(t, Tokenize("__"))
}

func TestTokenOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, TokenOverlap("first_name", "FirstName"), 1e-9)
	assert.InDelta(t, 0.5, TokenOverlap("billing_city", "city"), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap("email", "phone"), 1e-9)
	assert.InDelta(t, 0.0, TokenOverlap("", "phone"), 1e-9)

	assert.True(t, SharesToken("mailing_city", "cityName"))
	assert.False(t, SharesToken("email", "phone"))
}
