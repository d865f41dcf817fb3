package chat_test

import (
	"strings"
	"testing"

	chatmodel "github.com/divyam8333/CureBot/internal/model/chat"
	chat "github.com/divyam8333/CureBot/internal/service/chat"
	"github.com/divyam8333/CureBot/internal/storage"
)

func newService() *chat.Service {
	return chat.NewService(storage.NewMemoryStore())
}

func TestNewServiceSelfHeals(t *testing.T) {
	svc := newService()

	sessions := svc.ListSessions("")
	if len(sessions) != 1 {
		t.Fatalf("expected one default session, got %d", len(sessions))
	}
	if sessions[0].Title != chatmodel.DefaultTitle {
		t.Fatalf("unexpected default title: %q", sessions[0].Title)
	}

	active, ok := svc.GetActive()
	if !ok {
		t.Fatal("expected an active session")
	}
	if active.ID != sessions[0].ID {
		t.Fatalf("active pointer does not resolve to the default session")
	}
	if len(active.Messages) != 0 || len(active.Attachments) != 0 {
		t.Fatal("default session should start empty")
	}
}

func TestCreateSessionBecomesActiveAndLeads(t *testing.T) {
	svc := newService()
	created := svc.CreateSession()

	sessions := svc.ListSessions("")
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}
	if sessions[0].ID != created.ID {
		t.Fatal("new session should be inserted at the front")
	}

	active, _ := svc.GetActive()
	if active.ID != created.ID {
		t.Fatal("new session should be active")
	}
}

func TestDeleteNeverLeavesCollectionEmpty(t *testing.T) {
	svc := newService()
	only, _ := svc.GetActive()

	svc.DeleteSession(only.ID)

	sessions := svc.ListSessions("")
	if len(sessions) != 1 {
		t.Fatalf("expected a fresh session after deleting the last one, got %d", len(sessions))
	}
	if sessions[0].ID == only.ID {
		t.Fatal("deleted session id must not be reused")
	}

	active, ok := svc.GetActive()
	if !ok || active.ID != sessions[0].ID {
		t.Fatal("active pointer should follow the freshly created session")
	}
}

func TestDeleteNonActiveKeepsActivePointer(t *testing.T) {
	svc := newService()
	first, _ := svc.GetActive()
	second := svc.CreateSession()

	svc.DeleteSession(first.ID)

	if got := svc.ListSessions(""); len(got) != 1 {
		t.Fatalf("expected one session, got %d", len(got))
	}
	active, _ := svc.GetActive()
	if active.ID != second.ID {
		t.Fatalf("active pointer moved unexpectedly: got %s want %s", active.ID, second.ID)
	}
}

func TestDeleteActiveRepairsToLastInOrder(t *testing.T) {
	svc := newService()
	oldest, _ := svc.GetActive()
	svc.CreateSession()
	newest := svc.CreateSession()

	svc.DeleteSession(newest.ID)

	// Collection order is newest-first, so the last entry is the oldest.
	active, _ := svc.GetActive()
	if active.ID != oldest.ID {
		t.Fatalf("expected active to repair to last in collection order, got %s", active.ID)
	}
}

func TestDeleteMissingSessionIsNoOp(t *testing.T) {
	svc := newService()
	before := svc.ListSessions("")

	svc.DeleteSession("missing")

	after := svc.ListSessions("")
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatal("deleting a missing session must not change the collection")
	}
}

func TestSetActiveMissingIsNoOp(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	svc.SetActive("missing")

	got, _ := svc.GetActive()
	if got.ID != active.ID {
		t.Fatal("active pointer changed for a missing id")
	}
}

func TestAutoTitleFromFirstUserMessage(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	if _, err := svc.SendUserMessage(active.ID, "Plan a trip"); err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if got.Title != "Plan a trip" {
		t.Fatalf("expected auto title %q, got %q", "Plan a trip", got.Title)
	}
}

func TestAutoTitleTruncatesToFortyRunes(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	long := strings.Repeat("é", 60)
	if _, err := svc.SendUserMessage(active.ID, long); err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if runes := []rune(got.Title); len(runes) != 40 {
		t.Fatalf("expected 40-rune title, got %d runes", len(runes))
	}
}

func TestRenameWinsOverAutoTitle(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	svc.RenameSession(active.ID, "My health log")
	if _, err := svc.SendUserMessage(active.ID, "I have a headache"); err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if got.Title != "My health log" {
		t.Fatalf("rename must not be overwritten by auto-titling, got %q", got.Title)
	}
}

func TestRenameEmptyKeepsExistingTitle(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	svc.RenameSession(active.ID, "   ")

	got, _ := svc.GetSession(active.ID)
	if got.Title != chatmodel.DefaultTitle {
		t.Fatalf("expected title unchanged, got %q", got.Title)
	}
}

func TestEmptySubmissionRejectedBeforeMutation(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	if _, err := svc.SendUserMessage(active.ID, "   "); err != chat.ErrEmptySubmission {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if len(got.Messages) != 0 {
		t.Fatal("rejected submission must not append a message")
	}
}

func TestAttachmentsOnlySubmission(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	metas := []chatmodel.Attachment{{Name: "report.pdf", ByteSize: 2048, MimeType: "application/pdf"}}
	if err := svc.AddAttachments(active.ID, metas); err != nil {
		t.Fatalf("AddAttachments err: %v", err)
	}

	msg, err := svc.SendUserMessage(active.ID, "")
	if err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}
	if msg.Content != "(sent with attachments)" {
		t.Fatalf("unexpected placeholder content: %q", msg.Content)
	}

	got, _ := svc.GetSession(active.ID)
	if got.Title != chat.AttachmentsTitle {
		t.Fatalf("expected %q title, got %q", chat.AttachmentsTitle, got.Title)
	}
}

func TestAddAttachmentsAllowsDuplicateNames(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	meta := chatmodel.Attachment{Name: "scan.png", ByteSize: 100, MimeType: "image/png"}
	if err := svc.AddAttachments(active.ID, []chatmodel.Attachment{meta, meta}); err != nil {
		t.Fatalf("AddAttachments err: %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if len(got.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(got.Attachments))
	}
}

func TestRemoveAttachmentOutOfRangeIsNoOp(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	meta := chatmodel.Attachment{Name: "scan.png", ByteSize: 100, MimeType: "image/png"}
	if err := svc.AddAttachments(active.ID, []chatmodel.Attachment{meta}); err != nil {
		t.Fatalf("AddAttachments err: %v", err)
	}

	svc.RemoveAttachment(active.ID, 5)
	svc.RemoveAttachment(active.ID, -1)

	got, _ := svc.GetSession(active.ID)
	if len(got.Attachments) != 1 {
		t.Fatalf("out-of-range removal changed the attachments: %d", len(got.Attachments))
	}

	svc.RemoveAttachment(active.ID, 0)
	got, _ = svc.GetSession(active.ID)
	if len(got.Attachments) != 0 {
		t.Fatal("in-range removal should drop the attachment")
	}
}

func TestListSessionsFilterIsCaseInsensitive(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()
	svc.RenameSession(active.ID, "Knee Pain Diary")
	svc.CreateSession()

	matches := svc.ListSessions("knee")
	if len(matches) != 1 || matches[0].ID != active.ID {
		t.Fatalf("expected one filtered match, got %d", len(matches))
	}

	if got := svc.ListSessions("no such title"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestAppendToAssistantMessage(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	msg, err := svc.AppendMessage(active.ID, chatmodel.RoleAssistant, "")
	if err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	if _, err := svc.AppendToAssistantMessage(active.ID, msg.ID, "Hello"); err != nil {
		t.Fatalf("AppendToAssistantMessage err: %v", err)
	}
	content, err := svc.AppendToAssistantMessage(active.ID, msg.ID, " world")
	if err != nil {
		t.Fatalf("AppendToAssistantMessage err: %v", err)
	}
	if content != "Hello world" {
		t.Fatalf("unexpected accumulated content: %q", content)
	}
}

func TestAppendToAssistantMessageRejectsUserMessage(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	msg, err := svc.SendUserMessage(active.ID, "hello")
	if err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}

	if _, err := svc.AppendToAssistantMessage(active.ID, msg.ID, "x"); err != chat.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestClearMessagesKeepsTitleAndAttachments(t *testing.T) {
	svc := newService()
	active, _ := svc.GetActive()

	if _, err := svc.SendUserMessage(active.ID, "My knee hurts"); err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}
	if err := svc.AddAttachments(active.ID, []chatmodel.Attachment{{Name: "xray.png"}}); err != nil {
		t.Fatalf("AddAttachments err: %v", err)
	}

	if err := svc.ClearMessages(active.ID); err != nil {
		t.Fatalf("ClearMessages err: %v", err)
	}

	got, _ := svc.GetSession(active.ID)
	if len(got.Messages) != 0 {
		t.Fatal("expected empty transcript after clear")
	}
	if got.Title != "My knee hurts" || len(got.Attachments) != 1 {
		t.Fatal("clear must keep title and attachments")
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	store := storage.NewMemoryStore()

	svc := chat.NewService(store)
	active, _ := svc.GetActive()
	if _, err := svc.SendUserMessage(active.ID, "remember me"); err != nil {
		t.Fatalf("SendUserMessage err: %v", err)
	}
	other := svc.CreateSession()

	restored := chat.NewService(store)
	sessions := restored.ListSessions("")
	if len(sessions) != 2 {
		t.Fatalf("expected 2 restored sessions, got %d", len(sessions))
	}

	restoredActive, ok := restored.GetActive()
	if !ok || restoredActive.ID != other.ID {
		t.Fatal("active pointer did not survive the restart")
	}

	first, _ := restored.GetSession(active.ID)
	if len(first.Messages) != 1 || first.Messages[0].Content != "remember me" {
		t.Fatal("messages did not survive the restart")
	}
}

func TestMalformedStateFallsBackToDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Save("chats-v1", []byte("{not json")); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	svc := chat.NewService(store)
	if got := svc.ListSessions(""); len(got) != 1 {
		t.Fatalf("expected a fresh default session, got %d", len(got))
	}
}

func TestNullSessionEntryFallsBackToDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Save("chats-v1", []byte("[null]")); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	svc := chat.NewService(store)
	sessions := svc.ListSessions("")
	if len(sessions) != 1 {
		t.Fatalf("expected a fresh default session, got %d", len(sessions))
	}
	if _, ok := svc.GetActive(); !ok {
		t.Fatal("expected an active session")
	}
}

func TestRestoreDropsEntriesWithoutID(t *testing.T) {
	store := storage.NewMemoryStore()
	record := `[null,{"id":"","title":"ghost"},{"id":"keep","title":"Kept","messages":[],"attachments":[]}]`
	if err := store.Save("chats-v1", []byte(record)); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	svc := chat.NewService(store)
	sessions := svc.ListSessions("")
	if len(sessions) != 1 || sessions[0].ID != "keep" {
		t.Fatalf("expected only the valid entry to survive, got %+v", sessions)
	}

	active, ok := svc.GetActive()
	if !ok || active.ID != "keep" {
		t.Fatal("active pointer should repair to the surviving session")
	}
}

type countingNotifier struct {
	sessions int
	active   []string
}

func (n *countingNotifier) SessionsChanged() { n.sessions++ }

func (n *countingNotifier) ActiveChanged(id string) { n.active = append(n.active, id) }

func TestNotifierReceivesChanges(t *testing.T) {
	svc := newService()
	n := &countingNotifier{}
	svc.Subscribe(n)

	created := svc.CreateSession()
	if n.sessions != 1 {
		t.Fatalf("expected one sessionsChanged, got %d", n.sessions)
	}
	if len(n.active) != 1 || n.active[0] != created.ID {
		t.Fatalf("expected activeChanged for %s, got %v", created.ID, n.active)
	}

	svc.DeleteSession(created.ID)
	if n.sessions != 2 {
		t.Fatalf("expected sessionsChanged on delete, got %d", n.sessions)
	}
}
