package fsm

import "medrefBack/internal/models"

// Every open referral state may be settled (visited), flagged duplicate, or
// closed without treatment. Terminal states admit nothing.
var referralTransitions = map[models.ReferralStatus]map[models.ReferralStatus]struct{}{
	models.ReferralNew: {
		models.ReferralInProgress: {},
		models.ReferralContacted:  {},
		models.ReferralScheduled:  {},
		models.ReferralVisited:    {},
		models.ReferralDuplicate:  {},
		models.ReferralNoAnswer:   {},
		models.ReferralCancelled:  {},
	},
	models.ReferralInProgress: {
		models.ReferralContacted: {},
		models.ReferralScheduled: {},
		models.ReferralVisited:   {},
		models.ReferralDuplicate: {},
		models.ReferralNoAnswer:  {},
		models.ReferralCancelled: {},
	},
	models.ReferralContacted: {
		models.ReferralScheduled: {},
		models.ReferralVisited:   {},
		models.ReferralDuplicate: {},
		models.ReferralNoAnswer:  {},
		models.ReferralCancelled: {},
	},
	models.ReferralScheduled: {
		models.ReferralVisited:   {},
		models.ReferralDuplicate: {},
		models.ReferralNoAnswer:  {},
		models.ReferralCancelled: {},
	},
	models.ReferralVisited:   {},
	models.ReferralDuplicate: {},
	models.ReferralNoAnswer:  {},
	models.ReferralCancelled: {},
}

// CanTransitionReferral returns whether a referral may move between statuses.
func CanTransitionReferral(from, to models.ReferralStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := referralTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}
