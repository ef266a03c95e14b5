package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/answers"
	"github.com/prepline/prepline-backend/internal/config"
	"github.com/prepline/prepline-backend/internal/evaluator"
	"github.com/prepline/prepline-backend/internal/grading"
	"github.com/prepline/prepline-backend/internal/middleware"
	"github.com/prepline/prepline-backend/internal/model"
	"github.com/prepline/prepline-backend/internal/service"
	"github.com/prepline/prepline-backend/internal/session"
	ws "github.com/prepline/prepline-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler carries one module attempt per connection: countdown ticks,
// debounced autosave, submission, grading and the async evaluator push.
type WSHandler struct {
	cfg            *config.Config
	rdb            *redis.Client
	contentService *service.ContentService
	sessionService *service.SessionService
	evalClient     *evaluator.Client
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	cfg *config.Config,
	rdb *redis.Client,
	contentService *service.ContentService,
	sessionService *service.SessionService,
	evalClient *evaluator.Client,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		cfg:            cfg,
		rdb:            rdb,
		contentService: contentService,
		sessionService: sessionService,
		evalClient:     evalClient,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(cfg.AllowedOrigins),
	}
}

// safeConn serializes frame writes. Ticks, debounce flush acks and the
// evaluator push all write from their own goroutines; gorilla connections
// allow one concurrent writer only.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *safeConn) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *safeConn) sendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws.WriteError(s.conn, msg)
}

// attemptStream is the per-connection state bundle.
type attemptStream struct {
	h      *WSHandler
	conn   *safeConn
	log    zerolog.Logger
	userID int
	test   *model.Test
	module *model.Module
	rt     *session.Runtime
	store  *answers.Store
	sink   *answers.RedisSink
	// generation increments on retake; in-flight evaluator results from an
	// older generation are discarded instead of pushed.
	generation atomic.Int64
}

// AttemptStream godoc
// WS /ws/v1/tests/:test_id/modules/:module/stream
// Upgrades to WebSocket and drives one module attempt end to end.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID := c.Param("test_id")
	moduleType := model.ModuleType(c.Param("module"))

	test, err := h.contentService.GetTest(c.Request.Context(), testID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return
	}
	module := test.ModuleByType(moduleType)
	if module == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("test_id", testID).
		Str("module", string(moduleType)).
		Logger()

	s := &attemptStream{
		h:      h,
		conn:   &safeConn{conn: rawConn},
		log:    wsLog,
		userID: claims.UserID,
		test:   test,
		module: module,
	}
	s.rt = session.NewRuntime(module, s.onSubmit, wsLog)
	s.sink = answers.NewRedisSink(h.rdb, claims.UserID, testID, string(moduleType))
	s.store = answers.NewStore(h.cfg.AutosaveDebounce, answers.SinkFunc(s.flushAndAck), wsLog)
	defer s.store.Close()

	if saved, err := s.sink.Load(c.Request.Context()); err != nil {
		wsLog.Warn().Err(err).Msg("Answer rehydrate failed, starting blank")
	} else {
		s.store.Rehydrate(saved)
	}
	s.resumeClock(c.Request.Context())

	wsLog.Info().Msg("Attempt stream connected")
	s.sendState()

	done := make(chan struct{})
	defer close(done)
	go s.tickLoop(done)

	s.readLoop()
}

// flushAndAck is the store sink: mirror to Redis, then acknowledge the batch.
func (s *attemptStream) flushAndAck(ctx context.Context, dirty map[string]string) error {
	if err := s.sink.Flush(ctx, dirty); err != nil {
		return err
	}
	s.conn.send(ws.SavedResponse{Event: ws.EventSaved, Count: len(dirty)})
	return nil
}

func (s *attemptStream) tickLoop(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if s.rt.State() != session.StateInProgress {
				continue
			}
			s.rt.Tick()
			s.conn.send(ws.TickResponse{
				Event:       ws.EventTick,
				Remaining:   s.rt.Remaining(),
				PartIndex:   s.rt.PartIndex(),
				InputLocked: s.rt.InputLocked(),
			})
		}
	}
}

func (s *attemptStream) readLoop() {
	for {
		raw, err := ws.ReadRaw(s.conn.conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			s.conn.sendError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionStart:
			s.handleStart()
		case ws.ActionAudioReady:
			s.rt.AudioReady()
			s.sendState()
		case ws.ActionAudioPosition:
			var req ws.AudioPositionRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				s.conn.sendError("malformed audio_position")
				continue
			}
			s.rt.AudioPosition(req.Position)
			s.persistPart()
		case ws.ActionNavigate:
			var req ws.NavigateRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				s.conn.sendError("malformed navigate")
				continue
			}
			s.rt.Navigate(req.Part)
			s.persistPart()
		case ws.ActionAutosave:
			var req ws.AutosaveRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				s.conn.sendError("malformed autosave")
				continue
			}
			s.handleAutosave(&req)
		case ws.ActionSubmit:
			if err := s.rt.Submit(); err != nil {
				s.conn.sendError(err.Error())
			}
		case ws.ActionRetake:
			s.handleRetake()
		case ws.ActionPing:
			s.conn.send(ws.PongResponse{Event: ws.EventPong})
		default:
			s.log.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			s.conn.sendError("unknown action: " + string(envelope.Action))
		}
	}
}

func (s *attemptStream) handleStart() {
	if err := s.rt.Start(); err != nil {
		s.conn.sendError(err.Error())
		return
	}

	// Mark the wall-clock start so a reconnect resumes the countdown instead
	// of restarting it.
	ctx := context.Background()
	startKey := config.CacheKey.AttemptStartKey(s.userID, s.test.ID, string(s.module.Type))
	if err := s.h.rdb.Set(ctx, startKey, time.Now().Unix(), s.clockTTL()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Clock marker write failed")
	}
	s.h.rdb.Del(ctx, config.CacheKey.AttemptPartKey(s.userID, s.test.ID, string(s.module.Type)))

	s.sendState()
}

// resumeClock restores the countdown and displayed part persisted by an
// earlier connection. Missing markers mean a fresh attempt.
func (s *attemptStream) resumeClock(ctx context.Context) {
	startKey := config.CacheKey.AttemptStartKey(s.userID, s.test.ID, string(s.module.Type))
	val, err := s.h.rdb.Get(ctx, startKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Msg("Clock marker read failed")
		}
		return
	}
	started, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return
	}
	elapsed := int(time.Now().Unix() - started)

	part := 0
	partKey := config.CacheKey.AttemptPartKey(s.userID, s.test.ID, string(s.module.Type))
	if pv, err := s.h.rdb.Get(ctx, partKey).Result(); err == nil {
		part, _ = strconv.Atoi(pv)
	}

	if err := s.rt.Resume(elapsed, part); err != nil {
		return
	}
	s.log.Info().Int("elapsed", elapsed).Int("part", part).Msg("Attempt resumed")
}

// persistPart mirrors the displayed part for reconnect resume.
func (s *attemptStream) persistPart() {
	partKey := config.CacheKey.AttemptPartKey(s.userID, s.test.ID, string(s.module.Type))
	if err := s.h.rdb.Set(context.Background(), partKey, s.rt.PartIndex(), s.clockTTL()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Part marker write failed")
	}
}

func (s *attemptStream) clearClock(ctx context.Context) {
	s.h.rdb.Del(ctx,
		config.CacheKey.AttemptStartKey(s.userID, s.test.ID, string(s.module.Type)),
		config.CacheKey.AttemptPartKey(s.userID, s.test.ID, string(s.module.Type)))
}

// clockTTL is long enough to outlive any attempt plus reconnect slack.
func (s *attemptStream) clockTTL() time.Duration {
	return time.Duration(s.module.DurationSeconds)*time.Second + time.Hour
}

func (s *attemptStream) handleAutosave(req *ws.AutosaveRequest) {
	if req.QID == "" {
		s.conn.sendError("q_id is required")
		return
	}
	if s.rt.State() != session.StateInProgress {
		s.conn.sendError(session.ErrNotInProgress.Error())
		return
	}
	if s.rt.InputLocked() {
		s.conn.sendError(session.ErrInputLocked.Error())
		return
	}
	if s.module.QuestionByID(req.QID) == nil {
		s.conn.sendError("unknown q_id")
		return
	}
	s.store.Set(req.QID, req.Answer)
}

// onSubmit runs once per attempt regardless of trigger. Local grading and
// the graded frame are synchronous; the evaluator round trip is not.
func (s *attemptStream) onSubmit(trigger session.SubmitTrigger) {
	ctx := context.Background()

	if err := s.store.FlushNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("Final answer flush failed")
	}
	snapshot := s.store.Snapshot()
	s.clearClock(ctx)

	var result grading.Result
	if s.module.Type != model.ModuleWriting {
		result = grading.Grade(s.module, snapshot)
	}

	attemptID := s.persistAttempt(ctx, snapshot, result)

	s.conn.send(ws.GradedResponse{
		Event:     ws.EventGraded,
		Raw:       result.Raw,
		Total:     result.Total,
		Band:      result.Band,
		AttemptID: attemptID,
	})
	s.log.Info().
		Str("trigger", string(trigger)).
		Int("raw", result.Raw).
		Int("total", result.Total).
		Float64("band", result.Band).
		Msg("Attempt graded")

	gen := s.generation.Load()
	go s.evaluate(snapshot, attemptID, gen)
}

// persistAttempt stores the local result. Failure is logged and reported but
// never blocks completion; the candidate keeps their local score.
func (s *attemptStream) persistAttempt(ctx context.Context, snapshot map[string]string, result grading.Result) string {
	attempt, err := s.h.sessionService.SaveModuleResult(ctx, s.userID, &model.SaveModuleResultRequest{
		TestID:     s.test.ID,
		ModuleType: string(s.module.Type),
		BandScore:  result.Band,
		RawScore:   result.Raw,
		Total:      result.Total,
		Answers:    snapshot,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Result save failed")
		s.conn.sendError("result save failed")
		return ""
	}
	return attempt.ID.String()
}

// evaluate calls the external examiner, pushes the verdict if this attempt is
// still current, and queues it for persistence.
func (s *attemptStream) evaluate(snapshot map[string]string, attemptID string, gen int64) {
	defer func() {
		s.rt.Complete()
		s.sendState()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.h.cfg.EvaluatorTimeout)
	defer cancel()

	var (
		band     float64
		feedback json.RawMessage
		err      error
	)

	if s.module.Type == model.ModuleWriting {
		var eval *evaluator.WritingEvaluation
		eval, err = s.h.evalClient.EvaluateWriting(ctx, grading.BuildWritingRequest(s.module, snapshot))
		if err == nil {
			band = eval.OverallWritingBand
			feedback, _ = json.Marshal(eval)
		}
	} else {
		var eval *evaluator.ModuleEvaluation
		eval, err = s.h.evalClient.EvaluateModule(ctx, grading.BuildModuleRequest(s.module, snapshot))
		if err == nil {
			band = eval.OverallBand
			feedback, _ = json.Marshal(eval)
		}
	}

	if err != nil {
		s.log.Error().Err(err).Msg("External evaluation failed")
		if s.generation.Load() == gen {
			s.conn.sendError("evaluation failed")
		}
		return
	}

	if s.generation.Load() != gen {
		s.log.Info().Msg("Discarding evaluation for replaced attempt")
		return
	}

	s.queueEvaluation(attemptID, band, feedback)
	s.conn.send(ws.EvaluationResponse{
		Event:    ws.EventEvaluation,
		Band:     band,
		Feedback: feedback,
	})
}

func (s *attemptStream) queueEvaluation(attemptID string, band float64, feedback json.RawMessage) {
	if attemptID == "" {
		return
	}
	id, err := uuid.Parse(attemptID)
	if err != nil {
		return
	}
	job := &service.EvaluationJob{AttemptID: id, Band: band, Feedback: feedback}
	if err := s.h.sessionService.QueueEvaluationResult(context.Background(), job); err != nil {
		s.log.Error().Err(err).Msg("Evaluation enqueue failed")
	}
}

func (s *attemptStream) handleRetake() {
	if err := s.rt.Retake(); err != nil {
		s.conn.sendError(err.Error())
		return
	}
	s.generation.Add(1)

	ctx := context.Background()
	s.clearClock(ctx)
	s.store.Clear()
	if err := s.sink.Drop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Answer hash drop failed")
	}
	if err := s.h.sessionService.ClearCompletion(ctx, s.userID, string(s.module.Type), s.test.ID); err != nil {
		s.log.Warn().Err(err).Msg("Completion marker clear failed")
	}

	s.log.Info().Msg("Attempt reset for retake")
	s.sendState()
}

func (s *attemptStream) sendState() {
	snap := s.rt.Snapshot()
	s.conn.send(ws.StateResponse{
		Event:       ws.EventState,
		State:       string(snap.State),
		Remaining:   snap.Remaining,
		PartIndex:   snap.PartIndex,
		InputLocked: snap.InputLocked,
		Module:      snap.Module,
	})
}
