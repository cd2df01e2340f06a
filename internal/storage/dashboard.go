package storage

// CountChannelVideos returns how many videos the channel owns, published or
// not.
func (s *Storage) CountChannelVideos(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, video := range s.data.Videos {
		if video.OwnerID == channelID {
			count++
		}
	}
	return count
}

// SumChannelViews totals the view counters across the channel's videos.
func (s *Storage) SumChannelViews(channelID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, video := range s.data.Videos {
		if video.OwnerID == channelID {
			total += video.Views
		}
	}
	return total
}

// CountChannelLikes totals likes received across the channel's videos,
// comments, and posts.
func (s *Storage) CountChannelLikes(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ownedVideos := make(map[string]struct{})
	for id, video := range s.data.Videos {
		if video.OwnerID == channelID {
			ownedVideos[id] = struct{}{}
		}
	}
	ownedComments := make(map[string]struct{})
	for id, comment := range s.data.Comments {
		if comment.AuthorID == channelID {
			ownedComments[id] = struct{}{}
		}
	}
	ownedPosts := make(map[string]struct{})
	for id, post := range s.data.Posts {
		if post.AuthorID == channelID {
			ownedPosts[id] = struct{}{}
		}
	}

	count := 0
	for _, like := range s.data.Likes {
		switch like.TargetKind {
		case LikeTargetVideo:
			if _, ok := ownedVideos[like.TargetID]; ok {
				count++
			}
		case LikeTargetComment:
			if _, ok := ownedComments[like.TargetID]; ok {
				count++
			}
		case LikeTargetPost:
			if _, ok := ownedPosts[like.TargetID]; ok {
				count++
			}
		}
	}
	return count
}

// CountChannelPosts returns how many posts the channel has published.
func (s *Storage) CountChannelPosts(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, post := range s.data.Posts {
		if post.AuthorID == channelID {
			count++
		}
	}
	return count
}
