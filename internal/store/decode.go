package store

import (
	"encoding/json"
	"fmt"

	"threadview/internal/utils"
)

// Actions travel as a JSON object whose "actionType" field names the kind,
// with the payload fields alongside it.
const actionTypeField = "actionType"

type decoder func(data []byte) (Action, error)

func decodeAs[T Action](data []byte) (Action, error) {
	var action T
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, err
	}
	return action, nil
}

var decoders = map[ActionKind]decoder{
	KindLogin:                 decodeAs[Login],
	KindLogout:                decodeAs[Logout],
	KindNewUserAccountCreated: decodeAs[NewUserAccountCreated],
	KindCreateForumCategory:   decodeAs[CreateForumCategory],
	KindPinPage:               decodeAs[PinPage],
	KindUnpinPage:             decodeAs[UnpinPage],
	KindSetPageNotfLevel:      decodeAs[SetPageNotfLevel],
	KindTogglePageIsDone:      decodeAs[TogglePageIsDone],
	KindTogglePageClosed:      decodeAs[TogglePageClosed],
	KindEditTitleAndSettings:  decodeAs[EditTitleAndSettings],
	KindUpdatePost:            decodeAs[UpdatePost],
	KindVoteOnPost:            decodeAs[VoteOnPost],
	KindMarkPostAsRead:        decodeAs[MarkPostAsRead],
	KindCycleToNextMark:       decodeAs[CycleToNextMark],
	KindSummarizeReplies:      decodeAs[SummarizeReplies],
	KindUnsquashTrees:         decodeAs[UnsquashTrees],
	KindCollapseTree:          decodeAs[CollapseTree],
	KindUncollapsePost:        decodeAs[UncollapsePost],
	KindSetHorizontalLayout:   decodeAs[SetHorizontalLayout],
	KindChangeSiteStatus:      decodeAs[ChangeSiteStatus],
}

// DecodeAction parses an action envelope. A kind no handler knows decodes
// to UnknownAction rather than failing; a missing kind or a malformed payload
// is an INVALID_INPUT error.
func DecodeAction(data []byte) (Action, error) {
	var envelope struct {
		ActionType string `json:"actionType"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "malformed action", err)
	}
	if envelope.ActionType == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "action has no "+actionTypeField, nil)
	}

	decode, ok := decoders[ActionKind(envelope.ActionType)]
	if !ok {
		return UnknownAction{ActionType: envelope.ActionType, Payload: append([]byte(nil), data...)}, nil
	}
	action, err := decode(data)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput,
			fmt.Sprintf("malformed %s action", envelope.ActionType), err)
	}
	if err := checkPayload(action); err != nil {
		return nil, err
	}
	return action, nil
}

func checkPayload(action Action) error {
	var missing bool
	switch a := action.(type) {
	case UpdatePost:
		missing = a.Post == nil
	case VoteOnPost:
		missing = a.Post == nil
	case CollapseTree:
		missing = a.Post == nil
	case UncollapsePost:
		missing = a.Post == nil
	case EditTitleAndSettings:
		missing = a.NewTitlePost == nil
	}
	if missing {
		return utils.NewAppError(utils.ErrInvalidInput,
			fmt.Sprintf("%s action needs a post", action.Kind()), nil)
	}
	return nil
}

// EncodeAction produces the envelope DecodeAction reads.
func EncodeAction(action Action) ([]byte, error) {
	if unknown, ok := action.(UnknownAction); ok {
		return unknown.Payload, nil
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encode %s action: %w", action.Kind(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("encode %s action: %w", action.Kind(), err)
	}
	kind, err := json.Marshal(action.Kind())
	if err != nil {
		return nil, err
	}
	fields[actionTypeField] = kind
	return json.Marshal(fields)
}
