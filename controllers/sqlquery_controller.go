package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backend/services"
)

type SQLQueryController struct {
	Query *services.SQLQueryService
	Sync  *services.SyncService
}

func NewSQLQueryController(q *services.SQLQueryService, s *services.SyncService) *SQLQueryController {
	return &SQLQueryController{Query: q, Sync: s}
}

type sqlQueryRequest struct {
	Query string `json:"query"`
	Type  string `json:"type"`
	User  string `json:"user"` // body fallback for the identity
}

func (ctl *SQLQueryController) RunQuery(c *gin.Context) {
	var req sqlQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	identity := c.GetString("email")
	if identity == "" {
		identity = req.User
	}
	if identity == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user identity required"})
		return
	}

	queryType := req.Type
	if queryType == "" {
		queryType = services.QueryTypeSQL
	}

	res, err := ctl.Query.Execute(c.Request.Context(), identity, req.Query, queryType)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      res.Rows,
		"query":     res.FinalQuery,
		"user":      identity,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Examples is a public, static catalog of supported question shapes.
func (ctl *SQLQueryController) Examples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"natural_language": []string{
			"Show my last 5 meals",
			"How many calories did I eat today?",
			"How much protein did I get this week?",
			"What are my recommendations?",
			"Show my profile info",
		},
		"sql": []gin.H{
			{
				"query":       "SELECT food_name, calories FROM food_logs ORDER BY log_date DESC",
				"description": "Recent foods with calories; your user filter and a row limit are added automatically",
			},
			{
				"query":       "SELECT meal_type, SUM(calories) AS total FROM food_logs GROUP BY meal_type",
				"description": "Calorie totals per meal slot",
			},
			{
				"query":       "SELECT food_name FROM recommendations WHERE accepted = 1",
				"description": "Recommendations you accepted",
			},
		},
		"security_notes": []string{
			"Only SELECT statements are accepted; all writes and DDL are rejected.",
			"Every query is restricted to your own rows.",
			"Results are capped at 100 rows (default 5 when no LIMIT is given).",
		},
	})
}

// Schema returns the query table catalog. Requires an identity.
func (ctl *SQLQueryController) Schema(c *gin.Context) {
	if c.GetString("email") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user identity required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tables":  ctl.Query.Schema(),
		"policy": gin.H{
			"scoping":       "queries over user tables are filtered to the calling user's email",
			"default_limit": 5,
			"max_limit":     100,
		},
	})
}

// RunSync triggers a full sync pass. The identity is an auth gate only; the
// sync itself is global.
func (ctl *SQLQueryController) RunSync(c *gin.Context) {
	if c.GetString("email") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user identity required"})
		return
	}
	report, err := ctl.Sync.SyncAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func statusForError(err error) int {
	var qe *services.QueryError
	if errors.As(err, &qe) {
		switch qe.Kind {
		case services.ErrAuthenticationRequired:
			return http.StatusUnauthorized
		case services.ErrIdentityNotFound:
			return http.StatusForbidden
		}
	}
	return http.StatusBadRequest
}
