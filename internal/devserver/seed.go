package devserver

import (
	"time"

	"snmvm/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// SeedSummary reports what Seed created.
type SeedSummary struct {
	Users     int `json:"users" yaml:"users"`
	Posts     int `json:"posts" yaml:"posts"`
	Comments  int `json:"comments" yaml:"comments"`
	Replies   int `json:"replies" yaml:"replies"`
	Reactions int `json:"reactions" yaml:"reactions"`
}

// Seed fills the store with n posts of fake content, each with a few
// comments, replies and likes. The same seed gives the same shape.
func (s *Store) Seed(n int, seed int64) SeedSummary {
	faker := gofakeit.New(seed)
	var sum SeedSummary
	if n <= 0 {
		return sum
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id := uuid.NewString()
		s.ensureUserLocked(id, faker.Email(), faker.Name())
		users = append(users, id)
		sum.Users++
	}
	pick := func() string { return users[faker.Number(0, len(users)-1)] }

	base := s.now().UTC().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		p := &post{ID: uuid.NewString(), UserID: pick(), Content: faker.Sentence(12), CreatedAt: created}
		s.posts[p.ID] = p
		sum.Posts++

		for j, comments := 0, faker.Number(0, 4); j < comments; j++ {
			c := &comment{
				ID:        uuid.NewString(),
				PostID:    p.ID,
				UserID:    pick(),
				Content:   faker.Sentence(8),
				CreatedAt: created.Add(time.Duration(j+1) * time.Minute),
			}
			s.comments[c.ID] = c
			sum.Comments++

			for k, replies := 0, faker.Number(0, 2); k < replies; k++ {
				r := &comment{
					ID:        uuid.NewString(),
					PostID:    p.ID,
					ParentID:  c.ID,
					UserID:    pick(),
					Content:   faker.Sentence(6),
					CreatedAt: c.CreatedAt.Add(time.Duration(k+1) * time.Second),
				}
				s.comments[r.ID] = r
				sum.Replies++
			}

			if faker.Bool() {
				s.seedLikeLocked(pick(), "", c.ID)
				sum.Reactions++
			}
		}

		for _, u := range users {
			if faker.Number(0, 2) == 0 {
				s.seedLikeLocked(u, p.ID, "")
				sum.Reactions++
			}
		}
	}
	return sum
}

func (s *Store) seedLikeLocked(userID, postID, commentID string) {
	r := &reaction{ID: uuid.NewString(), UserID: userID, Type: models.ReactionLike, PostID: postID, CommentID: commentID}
	s.reactions[r.ID] = r
}
