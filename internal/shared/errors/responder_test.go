package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errOutOfCoins = errors.New("out of coins")

func respond(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/orders/42", nil)
	fn(c)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem
}

func TestResponder_FillsInstanceAndContentType(t *testing.T) {
	rec, problem := respond(t, func(c *gin.Context) {
		NewResponder("").NotFound(c, "order", "42")
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	require.Equal(t, "/v1/orders/42", problem.Instance)
}

func TestResponder_PrefixesBaseURI(t *testing.T) {
	_, problem := respond(t, func(c *gin.Context) {
		NewResponder("https://checkout.example").ValidationFailed(c, map[string]string{"limit": "must be an integer"})
	})
	require.Equal(t, "https://checkout.example"+TypeValidation, problem.Type)
}

func TestNewNotFoundProblem_NamesResource(t *testing.T) {
	problem := NewNotFoundProblem("product", "Z")
	require.Equal(t, http.StatusNotFound, problem.Status)
	require.Equal(t, "product with identifier 'Z' not found", problem.Detail)
	require.Equal(t, "product", problem.Extensions["resourceType"])
	require.Equal(t, "Z", problem.Extensions["identifier"])
}

func TestResponder_UnknownErrorsDoNotLeakText(t *testing.T) {
	rec, problem := respond(t, func(c *gin.Context) {
		NewResponder("").RespondError(c, errors.New("pq: connection refused"))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, problem.Detail, "pq")
}

func TestChainedResponder_UsesFirstMatchingMapper(t *testing.T) {
	r := NewChainedResponder("", func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errOutOfCoins) {
			return ErrConflict.WithDetail("not enough coins"), true
		}
		return ProblemDetail{}, false
	}, func(error) (ProblemDetail, bool) {
		return ErrServiceUnavailable, true
	})

	rec, problem := respond(t, func(c *gin.Context) { r.RespondError(c, errOutOfCoins) })
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "not enough coins", problem.Detail)

	rec, _ = respond(t, func(c *gin.Context) { r.RespondError(c, errors.New("other")) })
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
