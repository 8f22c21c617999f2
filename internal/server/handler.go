package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Yates-Labs/storyteller/internal/completion"
	"github.com/Yates-Labs/storyteller/internal/logger"
	"github.com/Yates-Labs/storyteller/internal/story"
)

// StartRequest is the JSON body of the start endpoint.
type StartRequest struct {
	AgeRange       string `json:"age_range"`
	CharacterCount int    `json:"character_count"`
	CharacterNames string `json:"character_names"`
	StoryType      string `json:"story_type"`
	Country        string `json:"country"`
}

// ContinueRequest is the JSON body of the continue endpoint.
type ContinueRequest struct {
	CurrentStory string `json:"current_story"`
	UserInput    string `json:"user_input"`
}

// StoryResponse carries the text written into the action's output field.
type StoryResponse struct {
	Story string `json:"story"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pageData is everything the index template renders.
type pageData struct {
	Tab          string
	Params       story.Parameters
	Story        string
	CurrentStory string
	UserInput    string
	Error        string
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, indexTemplate, pageData{Tab: "start", Params: story.DefaultParameters()})
}

// startPage handles the Start Story form. Its only output is the Story field.
func (s *Server) startPage(c *gin.Context) {
	data := pageData{Tab: "start"}

	params, err := formParameters(c)
	data.Params = params
	if err != nil {
		data.Error = err.Error()
		c.HTML(http.StatusBadRequest, indexTemplate, data)
		return
	}

	text, err := s.start(c, params)
	if err != nil {
		data.Error = err.Error()
		c.HTML(statusFor(err), indexTemplate, data)
		return
	}

	data.Story = text
	c.HTML(http.StatusOK, indexTemplate, data)
}

// continuePage handles the Continue Story form. Its only output is the Current Story field.
func (s *Server) continuePage(c *gin.Context) {
	data := pageData{
		Tab:          "continue",
		Params:       story.DefaultParameters(),
		CurrentStory: c.PostForm("current_story"),
		UserInput:    c.PostForm("user_input"),
	}

	text, err := s.continueStory(c, data.CurrentStory, data.UserInput)
	if err != nil {
		data.Error = err.Error()
		c.HTML(statusFor(err), indexTemplate, data)
		return
	}

	data.CurrentStory = text
	data.UserInput = ""
	c.HTML(http.StatusOK, indexTemplate, data)
}

func (s *Server) startAPI(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	text, err := s.start(c, story.Parameters(req))
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, StoryResponse{Story: text})
}

func (s *Server) continueAPI(c *gin.Context) {
	var req ContinueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	text, err := s.continueStory(c, req.CurrentStory, req.UserInput)
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, StoryResponse{Story: text})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) start(c *gin.Context, p story.Parameters) (string, error) {
	ctx := c.Request.Context()
	text, err := s.builder.Start(ctx, p)
	s.recorder.ObserveStory("start", err)
	if err != nil {
		logger.Error(ctx, "start story failed", err)
	}
	return text, err
}

func (s *Server) continueStory(c *gin.Context, current, input string) (string, error) {
	ctx := c.Request.Context()
	text, err := s.builder.Continue(ctx, current, input)
	s.recorder.ObserveStory("continue", err)
	if err != nil {
		logger.Error(ctx, "continue story failed", err)
	}
	return text, err
}

// formParameters reads the start form. The character count accepts integers
// and finite decimals that fit an int ("2", "2.0"); an empty field counts as zero.
func formParameters(c *gin.Context) (story.Parameters, error) {
	p := story.Parameters{
		AgeRange:       c.PostForm("age_range"),
		CharacterNames: c.PostForm("character_names"),
		StoryType:      c.PostForm("story_type"),
		Country:        c.PostForm("country"),
	}

	raw := strings.TrimSpace(c.PostForm("character_count"))
	if raw == "" {
		return p, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		p.CharacterCount = n
		return p, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
		return p, errors.New("number of characters must be a number")
	}
	p.CharacterCount = int(f)
	return p, nil
}

// statusFor maps builder errors to HTTP statuses.
func statusFor(err error) int {
	if errors.Is(err, completion.ErrService) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
