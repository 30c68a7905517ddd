// Command seed fills the development databases with users and approved posts
// scattered around a centre point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/anonto42/nearby/backend/internal/lifecycle"
	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/pkg/config"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/brianvoe/gofakeit/v6"
)

const kmPerDegree = 111.32

var seedTags = []string{"Traffic", "Weather", "Event", "Food", "Music", "Market", "Roads", "LostAndFound", "Sports", "Community"}

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	lat := flag.Float64("lat", 23.8103, "Latitude of the centre")
	lng := flag.Float64("lng", 90.4125, "Longitude of the centre")
	radius := flag.Float64("radius", 8, "Scatter radius in km")
	flag.Parse()

	centre := geo.Point{Lat: *lat, Lng: *lng}
	if !centre.Valid() {
		log.Fatalf("Invalid centre %v", centre)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	ctx := context.Background()
	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to migrate users: %v", err)
	}
	users := repositories.NewPostgresUserRepository(db.Postgres)
	posts := repositories.NewMongoPostRepository(db.Database())
	if err := posts.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create post indexes: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	log.Printf("Seeding %d users and %d posts within %.1f km of %.4f,%.4f", *numUsers, *numPosts, *radius, centre.Lat, centre.Lng)

	created := make([]*models.User, 0, *numUsers)
	for i := 0; i < *numUsers; i++ {
		u := fakeUser()
		if err := users.CreateUser(ctx, u); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		created = append(created, u)
	}
	if len(created) == 0 {
		log.Println("No users created, skipping posts")
		return
	}

	now := time.Now()
	for i := 0; i < *numPosts; i++ {
		author := created[gofakeit.Number(0, len(created)-1)]
		p := fakePost(author, scatter(centre, *radius), now)
		if err := posts.CreatePost(ctx, p); err != nil {
			log.Fatalf("Failed to create post: %v", err)
		}
	}
	log.Println("Seeding complete")
}

func fakeUser() *models.User {
	now := time.Now()
	return &models.User{
		ID:          "seed-" + gofakeit.UUID(),
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Nickname:    gofakeit.Username(),
		PhotoURL:    fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
		Bio:         gofakeit.Sentence(8),
		Settings:    models.DefaultSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// fakePost builds an approved post created up to its own duration ago, so
// the batch holds a mix of fresh and nearly expired posts.
func fakePost(author *models.User, at geo.Point, now time.Time) *models.Post {
	hours := gofakeit.Number(lifecycle.MinDurationHours, lifecycle.MaxDurationHours)
	createdAt := now.Add(-time.Duration(gofakeit.Number(0, hours*60-1)) * time.Minute)
	w := lifecycle.NewWindow(createdAt, hours)

	anonymous := gofakeit.Number(0, 9) == 0
	p := &models.Post{
		CreatorID:          author.ID,
		IsAnonymous:        anonymous,
		Title:              gofakeit.Sentence(4),
		Caption:            gofakeit.Paragraph(1, 2, 12, " "),
		Tags:               pickTags(),
		ImageURL:           fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()),
		Location:           models.NewLocation(at),
		CreatedAt:          w.CreatedAt,
		Duration:           hours,
		ExpiresAt:          w.ExpiresAt,
		DeleteAt:           w.DeleteAt(),
		LikedBy:            []string{},
		EyewitnessedBy:     []string{},
		VerificationStatus: models.VerificationApproved,
		IsVisible:          true,
		TextSafe:           "safe",
		ImageSafe:          "safe",
		ImageAI:            "not_ai",
	}
	if !anonymous {
		name, avatar := author.Name(), author.PhotoURL
		p.Username, p.UserAvatar = &name, &avatar
	}
	return p
}

func pickTags() []string {
	n := gofakeit.Number(1, 3)
	seen := map[string]bool{}
	out := make([]string, 0, n)
	for len(out) < n {
		tag := gofakeit.RandomString(seedTags)
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// scatter returns a uniformly distributed point within radiusKm of centre.
func scatter(centre geo.Point, radiusKm float64) geo.Point {
	d := radiusKm * math.Sqrt(gofakeit.Float64Range(0, 1))
	theta := gofakeit.Float64Range(0, 2*math.Pi)
	dLat := d * math.Cos(theta) / kmPerDegree
	dLng := d * math.Sin(theta) / (kmPerDegree * math.Cos(centre.Lat*math.Pi/180))
	return geo.Point{Lat: centre.Lat + dLat, Lng: centre.Lng + dLng}
}
