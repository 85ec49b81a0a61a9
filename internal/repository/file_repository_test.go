package repository

import (
	"go-file-vault/internal/model"
	"testing"
	"time"

	"github.com/google/uuid"
)

func createTestUsers(t *testing.T) (sender, recipient *model.User) {
	userRepo := NewUserRepository()
	sender = &model.User{Username: "sender", Email: "sender@example.com"}
	recipient = &model.User{Username: "recipient", Email: "recipient@example.com", PublicKey: "a2V5"}
	for _, u := range []*model.User{sender, recipient} {
		if err := userRepo.Create(u); err != nil {
			t.Fatalf("Failed to create test user: %v", err)
		}
	}
	return sender, recipient
}

func createTestShare(t *testing.T, repo *FileRepository, ownerID, recipientID uint, expiresAt time.Time) (*model.EncryptedFile, *model.SharedLink) {
	file := &model.EncryptedFile{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		FileName:        "report.pdf",
		FileSize:        1024,
		EncryptedAESKey: []byte{1, 2, 3},
		EncryptedData:   []byte{4, 5, 6, 7},
		IV:              []byte{8, 9},
	}
	link := &model.SharedLink{
		ID:          uuid.NewString(),
		FileID:      file.ID,
		RecipientID: recipientID,
		Password:    "hashed",
		ExpiresAt:   expiresAt,
	}
	if err := repo.CreateFileWithLink(file, link); err != nil {
		t.Fatalf("CreateFileWithLink() error = %v", err)
	}
	return file, link
}

func TestFileRepository_CreateFileWithLink(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()
	sender, recipient := createTestUsers(t)

	file, link := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(time.Hour))

	// 两条记录都应存在
	foundFile, err := repo.FindFile(file.ID)
	if err != nil {
		t.Errorf("FindFile() error = %v", err)
	}
	if foundFile == nil {
		t.Fatal("Expected to find created file, got nil")
	}
	if foundFile.FileName != "report.pdf" {
		t.Errorf("Expected file name report.pdf, got %v", foundFile.FileName)
	}

	foundLink, err := repo.FindLink(link.ID, recipient.ID)
	if err != nil {
		t.Errorf("FindLink() error = %v", err)
	}
	if foundLink == nil {
		t.Fatal("Expected to find created link, got nil")
	}
	if foundLink.FileID != file.ID {
		t.Errorf("Expected link to reference file %v, got %v", file.ID, foundLink.FileID)
	}
}

func TestFileRepository_FindLink(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()
	sender, recipient := createTestUsers(t)

	_, validLink := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(time.Hour))
	_, expiredLink := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(-time.Second))

	tests := []struct {
		name        string
		linkID      string
		recipientID uint
		wantFound   bool
	}{
		{
			name:        "Valid link for recipient",
			linkID:      validLink.ID,
			recipientID: recipient.ID,
			wantFound:   true,
		},
		{
			name:        "Nonexistent link",
			linkID:      uuid.NewString(),
			recipientID: recipient.ID,
			wantFound:   false,
		},
		{
			name:        "Wrong recipient",
			linkID:      validLink.ID,
			recipientID: sender.ID,
			wantFound:   false,
		},
		{
			name:        "Expired link",
			linkID:      expiredLink.ID,
			recipientID: recipient.ID,
			wantFound:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := repo.FindLink(tt.linkID, tt.recipientID)
			if err != nil {
				t.Errorf("FindLink() error = %v", err)
				return
			}
			if (link != nil) != tt.wantFound {
				t.Errorf("FindLink() found = %v, want %v", link != nil, tt.wantFound)
			}
		})
	}
}

func TestFileRepository_ExpiredQueries(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()
	sender, recipient := createTestUsers(t)

	expiredFile, expiredLink := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(-time.Minute))
	createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(time.Hour))

	linkIDs, err := repo.FindExpiredLinkIDs(time.Now())
	if err != nil {
		t.Fatalf("FindExpiredLinkIDs() error = %v", err)
	}
	if len(linkIDs) != 1 || linkIDs[0] != expiredLink.ID {
		t.Errorf("FindExpiredLinkIDs() = %v, want [%v]", linkIDs, expiredLink.ID)
	}

	fileIDs, err := repo.FindFileIDsForLinks(linkIDs)
	if err != nil {
		t.Fatalf("FindFileIDsForLinks() error = %v", err)
	}
	if len(fileIDs) != 1 || fileIDs[0] != expiredFile.ID {
		t.Errorf("FindFileIDsForLinks() = %v, want [%v]", fileIDs, expiredFile.ID)
	}
}

func TestFileRepository_DeleteLinksAndFiles(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()
	sender, recipient := createTestUsers(t)

	file, link := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(-time.Minute))

	if err := repo.DeleteLinksAndFiles([]string{link.ID}, []string{file.ID}); err != nil {
		t.Fatalf("DeleteLinksAndFiles() error = %v", err)
	}

	foundFile, err := repo.FindFile(file.ID)
	if err != nil {
		t.Errorf("FindFile() error = %v", err)
	}
	if foundFile != nil {
		t.Error("Expected file to be deleted")
	}
}

func TestFileRepository_DeleteOrphanFiles(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()
	sender, recipient := createTestUsers(t)

	// 一个有链接的文件和一个模拟上轮清扫中断留下的孤儿文件
	linked, _ := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(time.Hour))
	orphan, orphanLink := createTestShare(t, repo, sender.ID, recipient.ID, time.Now().Add(time.Hour))
	if err := repo.DeleteLinksAndFiles([]string{orphanLink.ID}, nil); err != nil {
		t.Fatalf("Failed to orphan test file: %v", err)
	}

	deleted, err := repo.DeleteOrphanFiles()
	if err != nil {
		t.Fatalf("DeleteOrphanFiles() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOrphanFiles() deleted = %v, want 1", deleted)
	}

	stillThere, err := repo.FindFile(linked.ID)
	if err != nil {
		t.Errorf("FindFile() error = %v", err)
	}
	if stillThere == nil {
		t.Error("Linked file must survive orphan cleanup")
	}

	gone, err := repo.FindFile(orphan.ID)
	if err != nil {
		t.Errorf("FindFile() error = %v", err)
	}
	if gone != nil {
		t.Error("Orphaned file must be deleted")
	}
}
