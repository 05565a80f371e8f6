package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/services"
	"github.com/gin-gonic/gin"
)

var errMalformedBody = fmt.Errorf("%w: malformed JSON body", common.ErrorValidation)

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errMalformedBody)
		return
	}
	res, err := s.blog.Register(c.Request.Context(), services.RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAuthResponse(res))
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errMalformedBody)
		return
	}
	res, err := s.blog.Login(c.Request.Context(), req.identifier(), req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResponse(res))
}

func (s *HTTPServer) listPosts(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		s.fail(c, err)
		return
	}

	page, err := s.blog.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := listPostsResponse{
		Posts:  make([]postResponse, 0, len(page.Posts)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, p := range page.Posts {
		out.Posts = append(out.Posts, toPostResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errMalformedBody)
		return
	}
	id, _ := authz.IdentityFromContext(c.Request.Context())
	p, err := s.blog.CreatePost(c.Request.Context(), id, req.Title, req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPostResponse(p))
}

func (s *HTTPServer) getPost(c *gin.Context) {
	postID, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.blog.GetPost(c.Request.Context(), postID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPostResponse(p))
}

func (s *HTTPServer) updatePost(c *gin.Context) {
	postID, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errMalformedBody)
		return
	}
	id, _ := authz.IdentityFromContext(c.Request.Context())
	p, err := s.blog.UpdatePost(c.Request.Context(), id, postID, services.UpdatePostInput{Title: req.Title, Content: req.Content})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPostResponse(p))
}

func (s *HTTPServer) deletePost(c *gin.Context) {
	postID, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	id, _ := authz.IdentityFromContext(c.Request.Context())
	if err := s.blog.DeletePost(c.Request.Context(), id, postID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) deleteAccount(c *gin.Context) {
	id, _ := authz.IdentityFromContext(c.Request.Context())
	if err := s.blog.DeleteAccount(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.logger.Error(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: post id must be an integer", common.ErrorValidation)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, name)
	}
	return n, nil
}
