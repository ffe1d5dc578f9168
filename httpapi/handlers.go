package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vivaneiona/menulens"
)

// Menu request modes.
const (
	modeFull      = "full"
	modeCountOnly = "count_only"
	modeBatch     = "batch"
	modeAll       = "all"
)

type imageRequest struct {
	Image      string `json:"image"`
	ImageURL   string `json:"image_url"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type menuRequest struct {
	imageRequest
	Mode        string `json:"mode"`
	BatchNumber int    `json:"batch_number"`
	TotalDishes int    `json:"total_dishes"`
}

type menuResponse struct {
	OriginalText        string              `json:"original_text"`
	TranslatedText      string              `json:"translated_text"`
	MenuItems           []menulens.MenuItem `json:"menu_items"`
	HasMore             bool                `json:"has_more"`
	TotalDishesEstimate int                 `json:"total_dishes_estimate"`
	BatchNumber         int                 `json:"batch_number"`
	DetectedLang        string              `json:"detected_lang"`
	Batches             int                 `json:"batches,omitempty"`
}

type dishesRequest struct {
	Dishes     []menulens.DishRef `json:"dishes"`
	SourceLang string             `json:"source_lang"`
}

type dishRequest struct {
	menulens.DishRef
	SourceLang string `json:"source_lang"`
}

type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"service":             "menulens",
		"version":             s.cfg.Version,
		"extraction_provider": s.o.ExtractorName(),
		"ocr_provider":        s.o.OCRName(),
	})
}

func (s *Server) menu(c *gin.Context) {
	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	img, err := s.loadImage(c.Request.Context(), req.imageRequest)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	lang := detectedLang(req.SourceLang)

	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", modeFull:
		res, err := s.o.ExtractFull(ctx, img, req.SourceLang, req.TargetLang)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, menuResponse{
			OriginalText:        res.OriginalText,
			TranslatedText:      res.TranslatedText,
			MenuItems:           res.Items,
			TotalDishesEstimate: len(res.Items),
			BatchNumber:         1,
			DetectedLang:        lang,
		})

	case modeCountOnly:
		c.JSON(http.StatusOK, s.o.ProbeCount(ctx, img, req.SourceLang))

	case modeBatch:
		res, err := s.o.ExtractBatch(ctx, menulens.BatchRequest{
			Image:      img,
			SourceLang: req.SourceLang,
			TargetLang: req.TargetLang,
			BatchIndex: req.BatchNumber,
			TotalHint:  req.TotalDishes,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, menuResponse{
			OriginalText:        res.OriginalText,
			TranslatedText:      res.TranslatedText,
			MenuItems:           res.Items,
			HasMore:             res.HasMore,
			TotalDishesEstimate: res.TotalDishesEstimate,
			BatchNumber:         res.BatchIndex,
			DetectedLang:        lang,
		})

	case modeAll:
		res, err := s.o.ExtractAll(ctx, img, req.SourceLang, req.TargetLang)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, menuResponse{
			MenuItems:           res.Items,
			HasMore:             res.HasMore,
			TotalDishesEstimate: res.TotalDishesEstimate,
			BatchNumber:         res.Batches,
			Batches:             res.Batches,
			DetectedLang:        lang,
		})

	default:
		s.fail(c, http.StatusBadRequest, errors.New("mode must be one of full, count_only, batch, all"))
	}
}

func (s *Server) ocr(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	img, err := s.loadImage(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	res, err := s.o.OCR(c.Request.Context(), img, req.SourceLang)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) dishDetails(c *gin.Context) {
	var req dishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.o.DishDetails(c.Request.Context(), req.DishRef, req.SourceLang)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) batchDishDetails(c *gin.Context) {
	var req dishesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.o.BatchDishDetails(c.Request.Context(), req.Dishes, req.SourceLang)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"details": res})
}

func (s *Server) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.o.Translate(c.Request.Context(), req.Text, req.Target)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// loadImage decodes image or, when absent, downloads image_url.
func (s *Server) loadImage(ctx context.Context, req imageRequest) (*menulens.Image, error) {
	if strings.TrimSpace(req.Image) != "" {
		return menulens.DecodeImage(req.Image)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, menulens.ErrNoImage
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return menulens.FetchImage(ctx, s.cfg.HTTPClient, req.ImageURL)
}

// respondError maps input errors to 400 and everything else to 500.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if menulens.Classify(err) == menulens.ClassInput {
		status = http.StatusBadRequest
	}
	s.fail(c, status, err)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.log.Warn("Request failed",
		"request_id", c.GetString("request_id"),
		"path", c.Request.URL.Path,
		"status", status,
		"class", menulens.Classify(err),
		"error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func detectedLang(source string) string {
	if source = strings.TrimSpace(source); source != "" {
		return source
	}
	return "zh"
}
