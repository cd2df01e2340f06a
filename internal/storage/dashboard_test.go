package storage

import "testing"

func TestChannelCounters(t *testing.T) {
	store := newTestStore(t)
	channelID := createTestUser(t, store, "alice")
	viewerID := createTestUser(t, store, "bob")

	first := createTestVideo(t, store, channelID, "first", true)
	second := createTestVideo(t, store, channelID, "second", false)
	createTestVideo(t, store, viewerID, "other", true)

	if _, err := store.RecordView(first, viewerID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := store.RecordView(first, ""); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := store.RecordView(second, viewerID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	comment, err := store.CreateComment(first, channelID, "thanks for watching")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	post, err := store.CreatePost(channelID, "announcement")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	if _, err := store.ToggleLike(viewerID, LikeTargetVideo, first); err != nil {
		t.Fatalf("ToggleLike video: %v", err)
	}
	if _, err := store.ToggleLike(viewerID, LikeTargetComment, comment.ID); err != nil {
		t.Fatalf("ToggleLike comment: %v", err)
	}
	if _, err := store.ToggleLike(viewerID, LikeTargetPost, post.ID); err != nil {
		t.Fatalf("ToggleLike post: %v", err)
	}
	if _, err := store.ToggleSubscription(viewerID, channelID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	if got := store.CountChannelVideos(channelID); got != 2 {
		t.Fatalf("expected 2 channel videos, got %d", got)
	}
	if got := store.SumChannelViews(channelID); got != 3 {
		t.Fatalf("expected 3 total views, got %d", got)
	}
	if got := store.CountChannelLikes(channelID); got != 3 {
		t.Fatalf("expected 3 channel likes, got %d", got)
	}
	if got := store.CountChannelPosts(channelID); got != 1 {
		t.Fatalf("expected 1 channel post, got %d", got)
	}
	if got := store.CountSubscribers(channelID); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	if got := store.CountChannelVideos(viewerID); got != 1 {
		t.Fatalf("expected 1 video for the other channel, got %d", got)
	}
	if got := store.CountChannelLikes(viewerID); got != 0 {
		t.Fatalf("expected 0 likes for the other channel, got %d", got)
	}
}
