package outreach

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/replies"
)

func TestCheckRepliesMarksContactsReplied(t *testing.T) {
	f := newFixture(t, 10)
	a := f.addContact("a@x.com", "Acme")
	b := f.addContact("b@x.com", "Acme")
	fresh := f.addContact("new@x.com", "Acme")
	sent := f.addEmail(a, model.EmailSent, 0, f.now.Add(-48*time.Hour))
	f.setStatus(a, model.ContactContacted)
	f.setStatus(b, model.ContactFollowup2)

	replyDate := f.now.Add(-time.Hour)
	detector := &mockDetector{}
	detector.On("FindReplies", mock.Anything, mock.MatchedBy(func(cs []model.Contact) bool {
		if len(cs) != 2 {
			return false
		}
		for _, c := range cs {
			if c.ID == fresh {
				return false
			}
		}
		return true
	}), time.Time{}).Return([]replies.Reply{{ContactID: a, From: "a@x.com", Subject: "Re: hi", Date: replyDate}}, nil).Once()

	tracker := NewReplyTracker(f.store, detector, f.manager, nil)
	tracker.now = func() time.Time { return f.now }

	found, err := tracker.CheckReplies(f.ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a, found[0].ContactID)

	assert.Equal(t, model.ContactReplied, f.contact(a).Status)
	assert.Equal(t, model.ContactFollowup2, f.contact(b).Status)
	require.NotNil(t, f.email(sent).RepliedAt)
	assert.True(t, replyDate.Equal(*f.email(sent).RepliedAt))

	// the next pass only looks at mail since the previous one
	detector.On("FindReplies", mock.Anything, mock.Anything, f.now).Return([]replies.Reply{}, nil).Once()
	found, err = tracker.CheckReplies(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
	detector.AssertExpectations(t)
}

func TestCheckRepliesWithNobodyContacted(t *testing.T) {
	f := newFixture(t, 10)
	f.addContact("new@x.com", "Acme")
	detector := &mockDetector{}

	found, err := NewReplyTracker(f.store, detector, f.manager, nil).CheckReplies(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
	detector.AssertNotCalled(t, "FindReplies", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckRepliesDetectorError(t *testing.T) {
	f := newFixture(t, 10)
	c := f.addContact("a@x.com", "Acme")
	f.setStatus(c, model.ContactContacted)

	detector := &mockDetector{}
	detector.On("FindReplies", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("imap: login failed"))

	_, err := NewReplyTracker(f.store, detector, f.manager, nil).CheckReplies(f.ctx)
	assert.ErrorContains(t, err, "login failed")
	assert.Equal(t, model.ContactContacted, f.contact(c).Status)
}
