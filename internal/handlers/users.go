package handlers

import (
	"log"
	"net/http"

	"socialfeed/internal/middleware"
	"socialfeed/internal/service"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "Please provide username, email, and password")
		return
	}

	result, err := h.identity.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err, "Internal server error during registration")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"data":    result,
	})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "Please provide email and password")
		return
	}

	result, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if service.HasCode(err, service.ErrorCodeUnauthorized) {
			log.Printf("request_id=%s login_rejected client_ip=%s", middleware.RequestIDFromContext(c), c.ClientIP())
		}
		writeServiceError(c, err, "Internal server error during login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"data":    result,
	})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	params := parseOffsetParams(c.Query("limit"), c.Query("offset"), defaultPageLimit, maxPageLimit)

	users, err := h.identity.SearchUsers(c.Request.Context(), c.Query("search"), params.Limit, params.Offset)
	if err != nil {
		writeServiceError(c, err, "Internal server error during user search")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.identity.GetUser(c.Request.Context(), parseID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err, "Error fetching user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}
