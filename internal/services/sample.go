package services

import (
	"time"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// SampleOpenRequests returns the fixed demo listing shown to guests. Every
// row is clearly labeled as sample data and none of it exists in the
// database, so a guest can browse the shape of the marketplace without any
// real client being exposed.
func SampleOpenRequests() []OpenRequest {
	now := time.Now().UTC()
	mk := func(n int, name, code, atype string, pages, cost int, days int) OpenRequest {
		return OpenRequest{
			AssignmentRequest: domain.AssignmentRequest{
				ID:             "sample-" + code,
				CourseName:     "[Sample] " + name,
				CourseCode:     code,
				AssignmentType: atype,
				NumPages:       pages,
				Deadline:       now.Add(time.Duration(days) * 24 * time.Hour),
				EstimatedCost:  cost,
				Status:         domain.RequestOpen,
				CreatedAt:      now.Add(-time.Duration(n) * time.Hour),
			},
			Client: domain.PublicProfile{
				ID:           "sample-client",
				Name:         "Sample Client",
				Rating:       4.8,
				TotalRatings: 12,
			},
		}
	}
	return []OpenRequest{
		mk(1, "Introduction to Economics", "ECON101", "essay", 5, 250, 6),
		mk(2, "Organic Chemistry II", "CHEM220", "lab_report", 8, 400, 4),
		mk(3, "Modern European History", "HIST315", "research_paper", 12, 600, 10),
	}
}
