package gql

import (
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

type request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type response struct {
	Data   any   `json:"data"`
	Errors []any `json:"errors,omitempty"`
}

// domainErrorBody is the shape of an error raised by a service.
type domainErrorBody struct {
	Message string              `json:"message"`
	Data    []domain.FieldError `json:"data"`
	Code    int                 `json:"code"`
}

// Handler executes GraphQL requests against a schema.
type Handler struct {
	schema graphql.Schema
	log    zerolog.Logger
}

func NewHandler(schema graphql.Schema, log zerolog.Logger) *Handler {
	return &Handler{schema: schema, log: log.With().Str("component", "graphql").Logger()}
}

// Serve handles POST /graphql.
func (h *Handler) Serve(c echo.Context) error {
	var req request
	if err := c.Bind(&req); err != nil || req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Must provide query string.")
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        c.Request().Context(),
	})

	for _, fe := range result.Errors {
		h.log.Info().Str("error", fe.Message).Msg("graphql error")
	}

	return c.JSON(http.StatusOK, response{Data: result.Data, Errors: formatErrors(result.Errors)})
}

// formatErrors reshapes errors raised by a service into {message, data,
// code}. Anything else, such as query syntax errors, passes through as is.
func formatErrors(errs []gqlerrors.FormattedError) []any {
	if len(errs) == 0 {
		return nil
	}

	out := make([]any, 0, len(errs))
	for _, fe := range errs {
		de := originalDomainError(fe)
		if de == nil {
			out = append(out, fe)
			continue
		}

		data := de.Data
		if data == nil {
			data = []domain.FieldError{}
		}
		out = append(out, domainErrorBody{Message: de.Error(), Data: data, Code: domain.StatusCode(de)})
	}
	return out
}

func originalDomainError(fe gqlerrors.FormattedError) *domain.Error {
	err := fe.OriginalError()
	var located *gqlerrors.Error
	if errors.As(err, &located) && located.OriginalError != nil {
		err = located.OriginalError
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}
