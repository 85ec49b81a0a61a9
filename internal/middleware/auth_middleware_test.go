package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-file-vault/internal/model"
	"go-file-vault/internal/repository"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/db"
	"go-file-vault/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	if err := config.InitTest(); err != nil {
		t.Fatalf("Failed to initialize config: %v", err)
	}

	if err := db.InitDB(config.GlobalConfig.Database.DSN); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	cleanupUserTable(t)
}

func setupTestUser(t *testing.T) (*model.User, string) {
	userRepo := repository.NewUserRepository()

	// 创建测试用户
	user := &model.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	}

	if err := userRepo.Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	// 生成token
	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	return user, token
}

func TestAuthMiddleware(t *testing.T) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		setupAuth  func(*http.Request)
		wantStatus int
	}{
		{
			name: "Valid token",
			setupAuth: func(r *http.Request) {
				_, token := setupTestUser(t)
				r.Header.Set("Authorization", "Bearer "+token)
			},
			wantStatus: http.StatusOK,
		},
		{
			// websocket握手不能带自定义头，token放在查询参数里
			name: "Valid token via query parameter",
			setupAuth: func(r *http.Request) {
				cleanupUserTable(t)
				_, token := setupTestUser(t)
				q := r.URL.Query()
				q.Set("token", token)
				r.URL.RawQuery = q.Encode()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Missing auth header",
			setupAuth: func(r *http.Request) {
				// Don't set any auth header
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid auth format",
			setupAuth: func(r *http.Request) {
				r.Header.Set("Authorization", "InvalidFormat token")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid token",
			setupAuth: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer invalid.token.here")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Token for deleted user",
			setupAuth: func(r *http.Request) {
				user, token := setupTestUser(t)
				if err := db.DB.Unscoped().Delete(user).Error; err != nil {
					t.Fatalf("Failed to delete test user: %v", err)
				}
				r.Header.Set("Authorization", "Bearer "+token)
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupUserTable(t)

			// 创建测试路由
			r := gin.New()
			r.Use(AuthMiddleware())
			r.GET("/test", func(c *gin.Context) {
				userID, exists := c.Get("userID")
				if !exists {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "userID not set"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"user_id": userID})
			})

			// 创建测试请求
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", nil)
			tt.setupAuth(req)

			// 执行请求
			r.ServeHTTP(w, req)

			// 验证响应
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				// 验证上下文中是否正确设置了用户信息
				assert.Contains(t, w.Body.String(), "user_id")
			}
		})
	}
}

// 帮助函数：清空 users 表中的所有数据。
// 先清掉引用用户的分享数据，避免外键约束挡住删除。
func cleanupUserTable(t *testing.T) {
	session := db.DB.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := session.Delete(&model.SharedLink{}).Error; err != nil {
		t.Logf("Failed to cleanup shared_links table: %v", err)
	}
	if err := session.Delete(&model.EncryptedFile{}).Error; err != nil {
		t.Logf("Failed to cleanup encrypted_files table: %v", err)
	}
	if err := session.Unscoped().Delete(&model.User{}).Error; err != nil {
		t.Logf("Failed to cleanup users table: %v", err)
	}
}
