package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/hitoq/hitoq/internal/config"
	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want []string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Name: "hitoq"},
			want: []string{"root@tcp(127.0.0.1:3306)/hitoq", "parseTime=true"},
		},
		{
			name: "custom host and port",
			cfg:  config.DatabaseConfig{Host: "10.0.0.5", Port: 3307, User: "app", Password: "pw", Name: "hitoq_prod"},
			want: []string{"app:pw@tcp(10.0.0.5:3307)/hitoq_prod"},
		},
		{
			name: "admin without database",
			cfg:  config.DatabaseConfig{Host: "db.internal", Port: 3306, User: "root"},
			want: []string{"root@tcp(db.internal:3306)/?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.cfg)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("DSN() = %q, want to contain %q", got, w)
				}
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN(":memory:"); got != "file::memory:?_foreign_keys=on" {
		t.Errorf("SQLiteDSN(:memory:) = %q", got)
	}
	got := SQLiteDSN("/var/lib/hitoq.db")
	if !strings.HasPrefix(got, "file:/var/lib/hitoq.db?") || !strings.Contains(got, "_foreign_keys=on") {
		t.Errorf("SQLiteDSN(file) = %q", got)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("err = %v, want unsupported driver", err)
	}
}

func TestOpenMemory_MigratesAllModels(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestDropAll(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := DropAll(gdb); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	for _, m := range AllModels() {
		if gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T still present", m)
		}
	}
}

func TestSeedUsers_Upsert(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}

	if err := SeedUsers(gdb, []models.User{{ID: "u1", UserName: "alice"}}); err != nil {
		t.Fatalf("SeedUsers: %v", err)
	}
	gdb.Model(&models.User{}).Where("id = ?", "u1").Update("notification_level", models.NotificationNone)

	if err := SeedUsers(gdb, []models.User{{ID: "u1", UserName: "alice2", DisplayName: "Alice"}}); err != nil {
		t.Fatalf("SeedUsers again: %v", err)
	}

	var u models.User
	if err := gdb.First(&u, "id = ?", "u1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if u.UserName != "alice2" || u.DisplayName != "Alice" {
		t.Errorf("user = %+v, want updated name fields", u)
	}
	if u.NotificationLevel != models.NotificationNone {
		t.Errorf("NotificationLevel = %q, want preserved none", u.NotificationLevel)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"mysql 1062", &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysqldriver.MySQLError{Number: 1452}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: message_likes.message_id"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsDuplicateKey_RealConstraint(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := SeedUsers(gdb, []models.User{{ID: "u1", UserName: "alice"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err = gdb.Create(&models.User{ID: "u2", UserName: "alice", DisplayName: "dup"}).Error
	if !IsDuplicateKey(err) {
		t.Errorf("IsDuplicateKey(%v) = false, want true", err)
	}
}
