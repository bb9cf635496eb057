package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator(t *testing.T) *validator.Validate {
	t.Helper()
	Init()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v
}

func TestPasswordRule(t *testing.T) {
	v := testValidator(t)

	type payload struct {
		Password string `json:"password" binding:"pwd"`
	}

	cases := []struct {
		password string
		valid    bool
	}{
		{"Abc123", true},
		{"LongerPassw0rd", true},
		{"short", false},      // too short
		{"alllower1", false},  // no uppercase
		{"ALLUPPER1", false},  // no lowercase
		{"NoDigitsHere", false},
	}
	for _, tc := range cases {
		err := v.Struct(payload{Password: tc.password})
		if tc.valid {
			assert.NoError(t, err, "password %q", tc.password)
		} else {
			assert.Error(t, err, "password %q", tc.password)
		}
	}
}

func TestPersonNameAlias(t *testing.T) {
	v := testValidator(t)

	type payload struct {
		Name string `json:"name" binding:"personname"`
	}

	assert.NoError(t, v.Struct(payload{Name: "Maya"}))
	assert.Error(t, v.Struct(payload{Name: "M"}))
}

func TestToDetailsUsesJSONFieldNames(t *testing.T) {
	v := testValidator(t)

	type payload struct {
		FirstName string `json:"firstName" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
	}

	err := v.Struct(payload{Email: "not-an-email"})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "is required", details["firstName"])
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestToDetailsNil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}
