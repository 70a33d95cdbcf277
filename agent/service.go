package agent

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calehh/impact-app/app"
	"github.com/calehh/impact-app/auth"
	"github.com/calehh/impact-app/blob"
	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type Service struct {
	logger        cmtlog.Logger
	engine        *gin.Engine
	app           *app.App
	gate          *auth.Gate
	listenAddr    string
	maxProofBytes int64
}

func NewService(listenAddr string, a *app.App, gate *auth.Gate, gatherer prometheus.Gatherer, maxProofBytes int64, logger cmtlog.Logger) *Service {
	r := gin.Default()
	r.MaxMultipartMemory = maxProofBytes + 1<<20
	s := &Service{
		logger:        logger.With("module", "agent"),
		engine:        r,
		app:           a,
		gate:          gate,
		listenAddr:    listenAddr,
		maxProofBytes: maxProofBytes,
	}
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	s.engine.GET("/blobs/*key", s.handleGetBlob)

	api := s.engine.Group("/api")
	api.POST("/submit", s.handleSubmit)
	api.POST("/proofs", s.handleUploadProof)
	api.GET("/submissions", s.handleGetSubmissions)
	api.GET("/submissions/:id", s.handleGetSubmission)
	api.POST("/admin/auth", s.handleAuth)

	admin := api.Group("/admin", s.requireAdmin)
	admin.POST("/approve", s.handleApprove)
	admin.GET("/tasks/:id", s.handleGetTask)
	admin.GET("/submissions/:id/verify", s.handleVerify)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts the listener down gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http service listening", "addr", s.listenAddr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http service")
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http service shutting down")
		return srv.Shutdown(sctx)
	}
}

func (s *Service) fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(s.errorStatus(err), errorBody(err))
}

func (s *Service) errorStatus(err error) int {
	code := types.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request fail", "code", code.String(), "err", err)
	}
	return status
}

func errorBody(err error) ErrorResponse {
	return ErrorResponse{Ok: false, Error: err.Error(), Code: types.CodeOf(err).String()}
}

func (s *Service) requireAdmin(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if err := s.gate.VerifyToken(token); err != nil {
		s.fail(c, err)
		return
	}
	c.Next()
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Service) handleSubmit(c *gin.Context) {
	var requestData state.NewSubmission
	if err := c.ShouldBindJSON(&requestData); err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "decoding submission"))
		return
	}
	sub, err := s.app.CreateSubmission(c.Request.Context(), requestData)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{Ok: true, Id: sub.Id})
}

func (s *Service) handleUploadProof(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "missing file"))
		return
	}
	if s.maxProofBytes > 0 && fh.Size > s.maxProofBytes {
		s.fail(c, types.Validationf("proof file exceeds %d bytes", s.maxProofBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "opening upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "reading upload"))
		return
	}
	url, err := s.app.UploadProof(c.Request.Context(), data, fh.Filename)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadResponse{Url: url})
}

func (s *Service) handleGetBlob(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	r, ok := s.app.BlobReader()
	if !ok || !blob.ValidKey(key) {
		s.fail(c, types.NotFoundf("proof %s", key))
		return
	}
	data, ct, err := r.Get(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, ct, data)
}

func (s *Service) handleGetSubmissions(c *gin.Context) {
	var requestData GetSubmissionsReq
	if err := c.ShouldBindQuery(&requestData); err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "decoding query"))
		return
	}
	page, err := s.app.Submissions(c.Request.Context(), state.ListOptions{
		Status:   types.Status(requestData.Status),
		Page:     requestData.Page,
		PageSize: requestData.PageSize,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GetSubmissionsResponse{
		Submissions: page.Items,
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
	})
}

func (s *Service) handleGetSubmission(c *gin.Context) {
	sub, err := s.app.Submission(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Service) handleAuth(c *gin.Context) {
	var requestData AuthReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "decoding credentials"))
		return
	}
	token, expires, err := s.gate.IssueToken(requestData.Password)
	if err != nil {
		s.logger.Info("admin auth rejected", "ip", c.ClientIP(), "code", types.CodeOf(err).String())
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Ok: true, Token: token, ExpiresAt: expires})
}

func (s *Service) handleApprove(c *gin.Context) {
	var requestData ApproveReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		s.fail(c, types.NewError(types.CodeValidation, err, "decoding approval"))
		return
	}
	ctx := c.Request.Context()
	if c.Query("wait") != "true" {
		task, err := s.app.ApproveAsync(ctx, requestData.SubmissionId, requestData.Points)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, ApproveResponse{Ok: true, TaskId: task.Id, Status: string(task.State)})
		return
	}

	res, err := s.app.Approve(ctx, requestData.SubmissionId, requestData.Points)
	if err != nil {
		body := errorBody(err)
		if res != nil {
			body.TxHash = res.TxHash
		}
		c.AbortWithStatusJSON(s.errorStatus(err), body)
		return
	}
	c.JSON(http.StatusOK, ApproveResponse{
		Ok:         true,
		Status:     string(types.TaskApproved),
		TxHash:     res.TxHash,
		ProofHash:  res.AttestationHash,
		Submission: res.Submission,
	})
}

func (s *Service) handleGetTask(c *gin.Context) {
	task, err := s.app.Task(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Service) handleVerify(c *gin.Context) {
	v, err := s.app.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
