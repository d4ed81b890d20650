package service

import (
	"math/rand"
	"strings"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/repository"
)

// ContentSource is the resolver's decision for one submission
type ContentSource string

const (
	// SourceClientMedia: proceed with client-supplied media
	SourceClientMedia ContentSource = "client_media"
	// SourceTopicOnly: client topic, no usable media, generate an image
	SourceTopicOnly ContentSource = "topic_only"
	// SourceSynthesize: synthesize topic and/or image from scratch
	SourceSynthesize ContentSource = "synthesize"
)

// NeedsImage reports whether the pipeline must generate an image
func (s ContentSource) NeedsImage() bool {
	return s == SourceTopicOnly || s == SourceSynthesize
}

// Resolution is the resolver's outcome: which source to use and the
// effective topic/media the pipeline proceeds with
type Resolution struct {
	Source    ContentSource
	Topic     string
	MediaRefs []string
}

// Topic ideas by industry, used when a submission arrives with nothing
// to work from
var industryTopics = map[string][]string{
	"landscaping": {
		"5 Tips for a Lush Green Lawn This Season",
		"Transform Your Backyard: Before & After Inspiration",
		"Essential Lawn Care Tools Every Homeowner Needs",
		"Why Fall is the Best Time for Lawn Aeration",
		"How to Choose the Right Mulch for Your Garden",
		"Common Lawn Problems and How to Fix Them",
		"The Benefits of Professional Landscape Maintenance",
	},
	"construction": {
		"Top Construction Trends for This Year",
		"How to Choose the Right Contractor for Your Project",
		"Safety First: Construction Site Best Practices",
		"The Importance of Quality Materials in Construction",
		"Renovation vs. New Build: What's Right for You?",
		"How We Ensure Quality in Every Project",
	},
	"restaurant": {
		"Chef's Special: This Week's Featured Dish",
		"Behind the Scenes in Our Kitchen",
		"Fresh Ingredients, Fresh Flavors",
		"Join Us for Happy Hour Specials",
		"Customer Favorites: Top 5 Dishes",
	},
	"real_estate": {
		"First-Time Homebuyer Tips",
		"How to Stage Your Home for a Quick Sale",
		"Top Neighborhoods to Watch This Year",
		"The Home Buying Process Simplified",
		"Market Update: Local Real Estate Trends",
	},
	"fitness": {
		"5 Exercises for a Full-Body Workout",
		"How to Stay Motivated on Your Fitness Journey",
		"Nutrition Tips for Better Performance",
		"The Benefits of Group Fitness Classes",
	},
	"healthcare": {
		"Tips for Staying Healthy This Season",
		"The Importance of Regular Check-ups",
		"Meet Our Team: Dedicated to Your Health",
		"Patient Success Stories",
	},
}

var genericTopics = []string{
	"Customer Success Story",
	"Behind the Scenes at Our Business",
	"Why Choose Us",
	"Meet Our Team",
	"Tips and Tricks from the Pros",
	"What Makes Us Different",
}

// SourceResolver decides, per submission, whether to work with client
// media, a client topic, or fully synthesized content. It is a pure
// decision: it reads usage counts but mutates nothing.
type SourceResolver struct {
	contents  repository.ContentRepository
	threshold int
}

// NewSourceResolver creates a resolver with the given overuse threshold
func NewSourceResolver(contents repository.ContentRepository, threshold int) *SourceResolver {
	if threshold <= 0 {
		threshold = 3
	}
	return &SourceResolver{contents: contents, threshold: threshold}
}

// Resolve picks the content source for a submission.
// A client with zero enabled platforms or a filled monthly quota fails
// fast regardless of input; generation never starts for such a record.
func (r *SourceResolver) Resolve(client *domain.Client, sub domain.Submission) (*Resolution, error) {
	if len(client.EnabledPlatforms) == 0 {
		return nil, common.ErrNoPlatforms
	}
	if client.OverQuota() {
		return nil, common.ErrQuotaExhausted
	}

	topic := strings.TrimSpace(sub.Topic)

	// Nothing to work from: synthesize topic and image
	if topic == "" && len(sub.MediaRefs) == 0 {
		return &Resolution{
			Source: SourceSynthesize,
			Topic:  topicForIndustry(client.Industry),
		}, nil
	}

	if len(sub.MediaRefs) > 0 {
		usage, err := r.contents.MediaUsage(client.ID)
		if err != nil {
			return nil, err
		}

		// An overused image is never recycled, even when explicitly
		// supplied
		fresh := make([]string, 0, len(sub.MediaRefs))
		for _, ref := range sub.MediaRefs {
			if usage[ref] < r.threshold {
				fresh = append(fresh, ref)
			}
		}

		if len(fresh) == 0 {
			res := &Resolution{Source: SourceSynthesize, Topic: topic}
			if res.Topic == "" {
				res.Topic = topicForIndustry(client.Industry)
			}
			return res, nil
		}

		return &Resolution{
			Source:    SourceClientMedia,
			Topic:     topic, // may be empty: inferred from the image downstream
			MediaRefs: fresh,
		}, nil
	}

	// Topic but no media: generate an image for it
	return &Resolution{Source: SourceTopicOnly, Topic: topic}, nil
}

func topicForIndustry(industry string) string {
	topics, ok := industryTopics[strings.ToLower(industry)]
	if !ok {
		topics = genericTopics
	}
	return topics[rand.Intn(len(topics))]
}
