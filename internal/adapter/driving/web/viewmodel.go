package web

import (
	"fmt"
	"strings"
	"time"

	vm "github.com/ericfisherdev/reviewq/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/reviewq/internal/application"
	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// toQueueViewModel converts a split queue into the page view model. Empty
// sections are kept so the page layout stays stable.
func toQueueViewModel(q application.Queue, noticeHTML string, now time.Time) vm.QueueViewModel {
	sections := []vm.SectionViewModel{
		toSection("Awaiting review", "reviewer", q.Reviewer, now),
		toSection("Awaiting submitter", "submitter", q.Submitter, now),
		toSection("Other", "other", q.Other, now),
	}

	total := 0
	for _, s := range sections {
		total += len(s.Reviews)
	}

	return vm.QueueViewModel{NoticeHTML: noticeHTML, Sections: sections, Total: total}
}

func toSection(title, anchor string, reviews []model.Review, now time.Time) vm.SectionViewModel {
	cards := make([]vm.ReviewCardViewModel, 0, len(reviews))
	for _, r := range reviews {
		cards = append(cards, toReviewCardViewModel(r, now))
	}
	return vm.SectionViewModel{Title: title, Anchor: anchor, Reviews: cards}
}

// toReviewCardViewModel converts a single domain Review to a ReviewCardViewModel.
func toReviewCardViewModel(r model.Review, now time.Time) vm.ReviewCardViewModel {
	card := vm.ReviewCardViewModel{
		ID:            r.ID,
		Title:         r.Title,
		URL:           r.URL,
		Source:        r.SourceSlug,
		Series:        r.SeriesSlug,
		Owner:         r.OwnerName,
		State:         string(r.State),
		StateSentence: fmt.Sprintf("%s %s %s", r.StateArticle(), r.State, strings.ToLower(string(r.Type))),
		Age:           r.Age(now),
		PositiveVotes: len(r.PositiveVotes()),
		NegativeVotes: len(r.NegativeVotes()),
	}

	if r.IsLocked() {
		card.LockedBy = r.LockerName
	}
	if t := r.CurrentTest(); t != nil {
		card.TestStatus = string(t.Status)
		card.TestColor = t.Color
	}
	return card
}
