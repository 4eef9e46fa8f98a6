// Package apitest runs an in-memory stand-in for the Socialite backend so
// client tests can exercise the real HTTP and push paths. The router mirrors
// the production gateway: /api/v1 prefix, JSON envelope on every response,
// permissive CORS, bearer identity, and a websocket fanout for push events.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/socialitehq/socialite/models"
)

const tokenSecret = "apitest-secret"

// Token signs an access token the fake gateway (and the client's session
// parser) will accept.
func Token(userID, username, name, familyName string) string {
	claims := jwt.MapClaims{
		"id":          userID,
		"username":    username,
		"name":        name,
		"family_name": familyName,
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tokenSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Server is the fake backend. Failure toggles let tests drive the error
// paths without tearing the server down.
type Server struct {
	HTTP      *httptest.Server
	BaseURL   string
	SocketURL string

	FailSends   bool
	FailDeletes bool

	mu            sync.Mutex
	conversations map[string]*models.Conversation
	members       map[string][]models.Member
	messages      map[string][]models.ChatMessage
	posts         map[string]*models.Post
	comments      map[string][]models.Comment
	friends       map[string][]models.Friend
	conns         map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		conversations: make(map[string]*models.Conversation),
		members:       make(map[string][]models.Member),
		messages:      make(map[string][]models.ChatMessage),
		posts:         make(map[string]*models.Post),
		comments:      make(map[string][]models.Comment),
		friends:       make(map[string][]models.Friend),
		conns:         make(map[*websocket.Conn]bool),
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	s.HTTP = httptest.NewServer(r)
	s.BaseURL = s.HTTP.URL + "/api/v1"
	s.SocketURL = "ws" + strings.TrimPrefix(s.HTTP.URL, "http") + "/ws"
	return s
}

func (s *Server) Close() {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]bool)
	s.mu.Unlock()
	s.HTTP.Close()
}

func (s *Server) defineRoutes(router *gin.Engine) {
	router.GET("/ws", s.handleSocket)

	apirouter := router.Group("/api/v1")
	apirouter.Use(s.authorize())
	apirouter.GET("/conversations", s.handleListConversations)
	apirouter.POST("/conversations", s.handleCreateConversation)
	apirouter.PATCH("/conversations/:id", s.handleUpdateConversation)
	apirouter.DELETE("/conversations/:id", s.handleDeleteConversation)
	apirouter.GET("/conversations/:id/members", s.handleMembers)
	apirouter.POST("/conversations/:id/members", s.handleAddMember)
	apirouter.DELETE("/conversations/:id/members/:userID", s.handleRemoveMember)
	apirouter.POST("/conversations/:id/leave", s.handleLeave)
	apirouter.POST("/conversations/:id/transfer", s.handleTransfer)
	apirouter.GET("/conversations/:id/messages", s.handleListMessages)
	apirouter.POST("/conversations/:id/messages", s.handleSendMessage)
	apirouter.DELETE("/messages/:id", s.handleDeleteMessage)
	apirouter.GET("/feed", s.handleFeed)
	apirouter.POST("/posts", s.handleCreatePost)
	apirouter.POST("/posts/:id/like", s.handleLikePost)
	apirouter.DELETE("/posts/:id/like", s.handleUnlikePost)
	apirouter.GET("/posts/:id/comments", s.handleComments)
	apirouter.POST("/posts/:id/comments", s.handleAddComment)
	apirouter.GET("/friends", s.handleFriends)
	apirouter.POST("/friends/:id/request", s.handleFriendRequest)
	apirouter.POST("/friends/:id/accept", s.handleFriendAccept)
	apirouter.DELETE("/friends/:id", s.handleFriendRemove)
}

func respond(c *gin.Context, status int, data interface{}, message string, paging *models.Paging) {
	env := gin.H{
		"error":   status >= 400,
		"code":    status,
		"message": message,
	}
	if data != nil {
		env["data"] = data
	}
	if paging != nil {
		env["paging"] = paging
	}
	c.JSON(status, env)
}

func (s *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respond(c, http.StatusUnauthorized, nil, "unauthorized", nil)
			c.Abort()
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(header[7:], claims, func(*jwt.Token) (interface{}, error) {
			return []byte(tokenSecret), nil
		})
		if err != nil {
			respond(c, http.StatusUnauthorized, nil, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Set("userID", claims["id"])
		c.Set("name", claims["name"])
		c.Set("familyName", claims["family_name"])
		c.Next()
	}
}

func sender(c *gin.Context) models.UserSnapshot {
	id, _ := c.Value("userID").(string)
	name, _ := c.Value("name").(string)
	family, _ := c.Value("familyName").(string)
	return models.UserSnapshot{ID: id, Name: name, FamilyName: family}
}

// AddConversation seeds a conversation with members.
func (s *Server) AddConversation(conv models.Conversation, members []models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := conv
	s.conversations[conv.ID] = &held
	s.members[conv.ID] = members
}

// SeedMessages installs a conversation history, oldest first.
func (s *Server) SeedMessages(conversationID string, msgs []models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append([]models.ChatMessage(nil), msgs...)
}

// Broadcast pushes an event to every connected socket.
func (s *Server) Broadcast(event models.Event) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		conn.WriteJSON(event)
	}
}

func (s *Server) handleSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			// heartbeats and signal events from clients; signal events
			// fan out to everyone else
			var event models.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			if event.Type == models.EventPing {
				continue
			}
			s.relay(conn, event)
		}
	}()
}

func (s *Server) relay(from *websocket.Conn, event models.Event) {
	// the gateway rewrites call-user into call-incoming for the callee
	if event.Type == models.EventCallUser {
		event.Type = models.EventCallIncoming
	}
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		if conn != from {
			conns = append(conns, conn)
		}
	}
	s.mu.Unlock()
	for _, conn := range conns {
		conn.WriteJSON(event)
	}
}

func (s *Server) handleListConversations(c *gin.Context) {
	s.mu.Lock()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, *conv)
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, out, "", nil)
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	me := sender(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(req.MemberIDs) == 1 {
		for id := range s.conversations {
			for _, m := range s.members[id] {
				if m.UserID == req.MemberIDs[0] {
					respond(c, http.StatusConflict, nil, "conversation already exists: "+id, nil)
					return
				}
			}
		}
	}
	conv := models.Conversation{
		ID:        uuid.New().String(),
		Name:      req.Name,
		ImageURL:  req.ImageURL,
		Role:      models.RoleOwner,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.conversations[conv.ID] = &conv
	members := []models.Member{{UserID: me.ID, Name: me.Name, FamilyName: me.FamilyName, Role: models.RoleOwner}}
	for _, id := range req.MemberIDs {
		members = append(members, models.Member{UserID: id, Role: models.RoleMember})
	}
	s.members[conv.ID] = members
	respond(c, http.StatusCreated, conv, "", nil)
}

func (s *Server) handleUpdateConversation(c *gin.Context) {
	var req models.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[c.Param("id")]
	if !ok {
		respond(c, http.StatusNotFound, nil, "conversation not found", nil)
		return
	}
	if req.Name != "" {
		conv.Name = req.Name
	}
	if req.ImageURL != "" {
		conv.ImageURL = req.ImageURL
	}
	conv.UpdatedAt = time.Now()
	respond(c, http.StatusOK, conv, "", nil)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	s.mu.Lock()
	delete(s.conversations, c.Param("id"))
	delete(s.members, c.Param("id"))
	delete(s.messages, c.Param("id"))
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleMembers(c *gin.Context) {
	s.mu.Lock()
	members := append([]models.Member(nil), s.members[c.Param("id")]...)
	s.mu.Unlock()
	respond(c, http.StatusOK, members, "", nil)
}

func (s *Server) handleAddMember(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	s.mu.Lock()
	s.members[c.Param("id")] = append(s.members[c.Param("id")], models.Member{UserID: body.UserID, Role: models.RoleMember})
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	me := sender(c)
	if c.Param("userID") == me.ID {
		respond(c, http.StatusBadRequest, nil, "cannot remove self", nil)
		return
	}
	s.mu.Lock()
	members := s.members[c.Param("id")]
	for i, m := range members {
		if m.UserID == c.Param("userID") {
			s.members[c.Param("id")] = append(members[:i], members[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleLeave(c *gin.Context) {
	me := sender(c)
	s.mu.Lock()
	members := s.members[c.Param("id")]
	for i, m := range members {
		if m.UserID == me.ID {
			s.members[c.Param("id")] = append(members[:i], members[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleTransfer(c *gin.Context) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	s.mu.Lock()
	for i, m := range s.members[c.Param("id")] {
		switch m.UserID {
		case body.UserID:
			s.members[c.Param("id")][i].Role = models.RoleOwner
		default:
			if m.Role == models.RoleOwner {
				s.members[c.Param("id")][i].Role = models.RoleMember
			}
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

// handleListMessages serves pages newest first, the way the real API does.
func (s *Server) handleListMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	s.mu.Lock()
	history := s.messages[c.Param("id")]
	total := len(history)
	newest := make([]models.ChatMessage, total)
	for i := range history {
		newest[i] = history[total-1-i]
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := newest[start:end]
	s.mu.Unlock()

	respond(c, http.StatusOK, out, "", &models.Paging{Page: page, Limit: limit, Total: total})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	if s.FailSends {
		respond(c, http.StatusInternalServerError, nil, "failed to save message", nil)
		return
	}
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	me := sender(c)
	msg := models.ChatMessage{
		ID:             uuid.New().String(),
		ClientKey:      req.ClientKey,
		ConversationID: c.Param("id"),
		SenderID:       me.ID,
		Sender:         me,
		Content:        req.Content,
		ParentID:       req.ParentID,
		CreatedAt:      time.Now(),
	}
	s.mu.Lock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.LastMessage = msg.Content
		conv.UpdatedAt = msg.CreatedAt
	}
	s.mu.Unlock()

	event, _ := models.NewEvent(models.EventNewMessage, msg)
	s.Broadcast(event)
	respond(c, http.StatusCreated, msg, "", nil)
}

func (s *Server) handleDeleteMessage(c *gin.Context) {
	if s.FailDeletes {
		respond(c, http.StatusInternalServerError, nil, "failed to delete message", nil)
		return
	}
	s.mu.Lock()
	for conversationID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == c.Param("id") {
				s.messages[conversationID] = append(msgs[:i], msgs[i+1:]...)
				s.mu.Unlock()
				respond(c, http.StatusOK, nil, "", nil)
				return
			}
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusNotFound, nil, "message not found", nil)
}

func (s *Server) handleFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	s.mu.Lock()
	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, out, "", &models.Paging{Page: page, Limit: len(out), Total: len(out)})
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	post := models.Post{
		ID:        uuid.New().String(),
		Author:    sender(c),
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.posts[post.ID] = &post
	s.mu.Unlock()
	respond(c, http.StatusCreated, post, "", nil)
}

func (s *Server) handleLikePost(c *gin.Context) {
	s.mu.Lock()
	post, ok := s.posts[c.Param("id")]
	if ok {
		post.LikeCount++
		post.Liked = true
	}
	s.mu.Unlock()
	if !ok {
		respond(c, http.StatusNotFound, nil, "post not found", nil)
		return
	}
	respond(c, http.StatusOK, post, "", nil)
}

func (s *Server) handleUnlikePost(c *gin.Context) {
	s.mu.Lock()
	post, ok := s.posts[c.Param("id")]
	if ok && post.LikeCount > 0 {
		post.LikeCount--
	}
	if ok {
		post.Liked = false
	}
	s.mu.Unlock()
	if !ok {
		respond(c, http.StatusNotFound, nil, "post not found", nil)
		return
	}
	respond(c, http.StatusOK, post, "", nil)
}

func (s *Server) handleComments(c *gin.Context) {
	s.mu.Lock()
	comments := append([]models.Comment(nil), s.comments[c.Param("id")]...)
	s.mu.Unlock()
	respond(c, http.StatusOK, comments, "", nil)
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req models.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "invalid request body", nil)
		return
	}
	comment := models.Comment{
		ID:        uuid.New().String(),
		PostID:    c.Param("id"),
		Author:    sender(c),
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.comments[comment.PostID] = append(s.comments[comment.PostID], comment)
	if post, ok := s.posts[comment.PostID]; ok {
		post.CommentCount++
	}
	s.mu.Unlock()
	respond(c, http.StatusCreated, comment, "", nil)
}

func (s *Server) handleFriends(c *gin.Context) {
	me := sender(c)
	s.mu.Lock()
	friends := append([]models.Friend(nil), s.friends[me.ID]...)
	s.mu.Unlock()
	respond(c, http.StatusOK, friends, "", nil)
}

func (s *Server) handleFriendRequest(c *gin.Context) {
	me := sender(c)
	target := c.Param("id")
	now := time.Now()
	s.mu.Lock()
	s.friends[me.ID] = append(s.friends[me.ID], models.Friend{
		User: models.User{ID: target}, Status: models.FriendPending, CreatedAt: now,
	})
	s.friends[target] = append(s.friends[target], models.Friend{
		User: models.User{ID: me.ID, Name: me.Name, FamilyName: me.FamilyName}, Status: models.FriendPending, CreatedAt: now,
	})
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleFriendAccept(c *gin.Context) {
	me := sender(c)
	target := c.Param("id")
	s.mu.Lock()
	for _, id := range []string{me.ID, target} {
		other := target
		if id == target {
			other = me.ID
		}
		for i, f := range s.friends[id] {
			if f.User.ID == other {
				s.friends[id][i].Status = models.FriendAccepted
			}
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}

func (s *Server) handleFriendRemove(c *gin.Context) {
	me := sender(c)
	target := c.Param("id")
	s.mu.Lock()
	for _, id := range []string{me.ID, target} {
		other := target
		if id == target {
			other = me.ID
		}
		kept := s.friends[id][:0]
		for _, f := range s.friends[id] {
			if f.User.ID != other {
				kept = append(kept, f)
			}
		}
		s.friends[id] = kept
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, nil, "", nil)
}
