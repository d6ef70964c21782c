package documents

// workflow describes one kind's state machine as data. Transitions not
// listed are illegal; terminal states have no successors.
type workflow struct {
	initial Status
	next    map[Status][]Status
}

func (w workflow) allows(from, to Status) bool {
	for _, s := range w.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (w workflow) knows(s Status) bool {
	if s == w.initial {
		return true
	}
	if _, ok := w.next[s]; ok {
		return true
	}
	for _, succ := range w.next {
		for _, t := range succ {
			if t == s {
				return true
			}
		}
	}
	return false
}

var workflows = map[Kind]workflow{
	KindReceipt: {
		initial: StatusDraft,
		next: map[Status][]Status{
			StatusDraft:   {StatusWaiting, StatusCancelled},
			StatusWaiting: {StatusReady, StatusCancelled},
			StatusReady:   {StatusDone, StatusCancelled},
		},
	},
	KindDelivery: {
		initial: StatusPick,
		next: map[Status][]Status{
			StatusPick:     {StatusPack, StatusCancelled},
			StatusPack:     {StatusValidate, StatusCancelled},
			StatusValidate: {StatusShipped},
		},
	},
	KindTransfer: {
		initial: StatusDraft,
		next: map[Status][]Status{
			StatusDraft:     {StatusInTransit, StatusCancelled},
			StatusInTransit: {StatusCompleted, StatusCancelled},
		},
	},
	KindAdjustment: {
		initial: StatusDraft,
		next: map[Status][]Status{
			StatusDraft: {StatusApproved, StatusCancelled},
		},
	},
}

// workflowFor returns the state machine of the kind.
func workflowFor(kind Kind) (workflow, bool) {
	w, ok := workflows[kind]
	return w, ok
}
