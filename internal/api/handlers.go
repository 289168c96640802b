package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/models"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDefaultPromotions serves the contents list for the configured
// default restaurant.
func (s *Server) handleDefaultPromotions(c *gin.Context) {
	promotions, err := s.promotions.GetRestaurantPromotions(c.Request.Context(), s.cfg.DefaultRestaurant, nil, nil)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if promotions == nil {
		c.JSON(http.StatusOK, []models.RestaurantContent{})
		return
	}
	c.JSON(http.StatusOK, promotions.Contents)
}

func (s *Server) handleRestaurantPromotions(c *gin.Context) {
	restaurantID, ok := s.pathInt(c, "nroRestaurante")
	if !ok {
		return
	}

	var onlyCurrent *bool
	if raw, exists := c.GetQuery("soloVigentes"); exists {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.badRequest(c, "soloVigentes must be a boolean")
			return
		}
		onlyCurrent = &parsed
	}

	var branchID *int
	if raw, exists := c.GetQuery("nroSucursal"); exists {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "nroSucursal must be an integer")
			return
		}
		branchID = &parsed
	}

	promotions, err := s.promotions.GetRestaurantPromotions(c.Request.Context(), restaurantID, onlyCurrent, branchID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if promotions == nil {
		s.notFound(c, "restaurant not found")
		return
	}
	c.JSON(http.StatusOK, promotions)
}

func (s *Server) handleRegisterClick(c *gin.Context) {
	var req models.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid click request body")
		return
	}

	response, err := s.clicks.RegisterClick(c.Request.Context(), req)
	if err != nil {
		s.registerClickError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// handleRegisterClickByContent registers a click identified by content id
// alone; the store resolves restaurant and language.
func (s *Server) handleRegisterClickByContent(c *gin.Context) {
	contentID, ok := s.pathInt(c, "nroContenido")
	if !ok {
		return
	}

	response, err := s.clicks.RegisterClick(c.Request.Context(), models.ClickRequest{ContentID: contentID})
	if err != nil {
		s.registerClickError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

func (s *Server) handleRestaurantDetail(c *gin.Context) {
	restaurantID, ok := s.pathInt(c, "nroRestaurante")
	if !ok {
		return
	}

	languageID := s.cfg.DefaultLanguage
	if raw, exists := c.GetQuery("nroIdioma"); exists {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "nroIdioma must be an integer")
			return
		}
		languageID = parsed
	}

	detail, err := s.details.GetRestaurantDetail(c.Request.Context(), restaurantID, languageID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if detail == nil {
		s.notFound(c, "restaurant not found")
		return
	}
	c.Data(http.StatusOK, "application/json", detail)
}

// handleNotifyClicks triggers a reconciliation batch. The response carries
// only the notified count; per-record detail stays in logs and the audit
// sink.
func (s *Server) handleNotifyClicks(c *gin.Context) {
	var restaurantFilter *int
	if raw, exists := c.GetQuery("nroRestaurante"); exists {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "nroRestaurante must be an integer")
			return
		}
		restaurantFilter = &parsed
	}

	report, err := s.notifier.NotifyAllPending(c.Request.Context(), restaurantFilter)
	if err != nil {
		s.log.WithError(err).Error("notification batch failed", nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     err.Error(),
			"timestamp": timestamp(),
		})
		return
	}

	response := gin.H{
		"notificadosExitosos": report.Notified,
		"timestamp":           timestamp(),
	}
	if restaurantFilter != nil {
		response["nroRestauranteFilter"] = *restaurantFilter
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) pathInt(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		s.badRequest(c, name+" must be an integer")
		return 0, false
	}
	return value, true
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":     msg,
		"timestamp": timestamp(),
	})
}

func (s *Server) notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":     msg,
		"timestamp": timestamp(),
	})
}

// registerClickError maps an unresolved content id to a 404; everything
// else is a server-side failure.
func (s *Server) registerClickError(c *gin.Context, err error) {
	if stdErr, ok := err.(*errors.StandardError); ok && stdErr.Code == errors.ErrCodeContentUnresolved {
		s.notFound(c, stdErr.Message)
		return
	}
	s.serverError(c, err)
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.log.WithError(err).Error("request failed", map[string]interface{}{
		"path": c.FullPath(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     err.Error(),
		"timestamp": timestamp(),
	})
}
