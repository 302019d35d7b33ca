package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "Abcdefghij1!", false},
		{"Too Short", "Small1!", true},
		{"Too Long", "A" + strings.Repeat("b", 126) + "1!", true},
		{"No Upper", "securepass12!", true},
		{"No Lower", "SECUREPASS12!", true},
		{"No Digit", "SecurePass!!", true},
		{"No Special", "SecurePass123", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsernameAndEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("page_editor"))
	assert.Error(t, ValidateUsername("ed"))
	assert.Error(t, ValidateUsername("user@123"))
	assert.Error(t, ValidateUsername("-editor"))

	assert.NoError(t, ValidateEmail("editor@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestNormalizePageURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/about/", NormalizePageURL("about", true))
	assert.Equal(t, "/about", NormalizePageURL("about", false))
	assert.Equal(t, "/about/", NormalizePageURL(" /about/ ", true))
}

func TestValidatePageURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		url         string
		appendSlash bool
		wantErr     bool
	}{
		{"Valid", "/about/team/", true, false},
		{"Tilde And Dots", "/~alice/v1.2/", true, false},
		{"No Trailing Slash Allowed", "/about", false, false},
		{"Missing Trailing Slash", "/about", true, true},
		{"Missing Leading Slash", "about/", true, true},
		{"Spaces", "/about us/", true, true},
		{"Query", "/about/?x=1", true, true},
		{"Empty Segment", "/about//team/", true, true},
		{"Empty", "", true, true},
		{"Too Long", "/" + strings.Repeat("a", 150) + "/", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePageURL(tt.url, tt.appendSlash)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTemplateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTemplateName(""))
	assert.NoError(t, ValidateTemplateName("flatpages/contact.html"))
	assert.Error(t, ValidateTemplateName("/etc/passwd.html"))
	assert.Error(t, ValidateTemplateName("../secret.html"))
	assert.Error(t, ValidateTemplateName("flatpages/contact.txt"))
	assert.Error(t, ValidateTemplateName(strings.Repeat("a", 70)+".html"))
}

func TestValidateTitleAndName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTitle("About"))
	assert.Error(t, ValidateTitle("   "))
	assert.Error(t, ValidateTitle(strings.Repeat("x", 201)))
	assert.NoError(t, ValidatePageName(""))
	assert.Error(t, ValidatePageName(strings.Repeat("x", 81)))
}
