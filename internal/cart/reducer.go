package cart

import (
	"time"

	"storefront/internal/model"
)

// ActionType identifies a cart mutation.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
	ActionUpdate ActionType = "update"
	ActionClear  ActionType = "clear"
)

// Action is a requested cart mutation.
type Action struct {
	Type     ActionType
	Item     ItemInput
	ID       string
	Quantity int
}

// AddItem returns the action adding in to the cart (merging with an identical line).
func AddItem(in ItemInput) Action {
	return Action{Type: ActionAdd, Item: in}
}

// RemoveItem returns the action removing the line with the given id.
func RemoveItem(id string) Action {
	return Action{Type: ActionRemove, ID: id}
}

// UpdateQuantity returns the action setting a line's quantity.
func UpdateQuantity(id string, qty int) Action {
	return Action{Type: ActionUpdate, ID: id, Quantity: qty}
}

// Clear returns the action emptying the cart.
func Clear() Action {
	return Action{Type: ActionClear}
}

// EventType names the notification emitted after a successful mutation.
type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
	EventUpdated EventType = "updated"
	EventCleared EventType = "cleared"
)

// Event describes a committed mutation. Item is the affected line (its final form for
// added/updated, its last form for removed) and is nil for cleared.
type Event struct {
	Type  EventType
	Item  *LineItem
	State State
}

// Reduce applies a to s and returns the next state. It is pure: s is never modified and
// on error the returned state is s itself.
func Reduce(s State, a Action, limits Limits, now time.Time) (State, Event, error) {
	switch a.Type {
	case ActionAdd:
		return reduceAdd(s, a.Item, limits, now)
	case ActionRemove:
		return reduceRemove(s, a.ID, now)
	case ActionUpdate:
		if a.Quantity < 1 {
			return reduceRemove(s, a.ID, now)
		}
		return reduceUpdate(s, a.ID, a.Quantity, limits, now)
	case ActionClear:
		next := derive(nil, now)
		return next, Event{Type: EventCleared, State: next}, nil
	default:
		return s, Event{}, model.NewDomainError(model.ErrCodeValidationFailed, "unknown cart action "+string(a.Type))
	}
}

func reduceAdd(s State, in ItemInput, limits Limits, now time.Time) (State, Event, error) {
	if err := ValidateItemInput(in, limits); err != nil {
		return s, Event{}, err
	}

	id := LineID(in.ProductID, in.Options)
	items := s.clone().Items

	if idx := s.Find(id); idx >= 0 {
		merged := items[idx]
		qty := merged.Quantity + in.Quantity
		if err := ValidateQuantity(qty, in.MaxStock, limits); err != nil {
			return s, Event{}, err
		}
		merged.Quantity = qty
		merged.MaxStock = in.MaxStock
		items[idx] = merged

		next := derive(items, now)
		return next, Event{Type: EventAdded, Item: &merged, State: next}, nil
	}

	if err := ValidateCapacity(len(items), limits); err != nil {
		return s, Event{}, err
	}

	item := LineItem{
		ID:        id,
		ProductID: in.ProductID,
		Name:      in.Name,
		Price:     in.Price,
		Quantity:  in.Quantity,
		Image:     in.Image,
		MaxStock:  in.MaxStock,
		Options:   in.Options.clone(),
		AddedAt:   now,
	}
	items = append(items, item)

	next := derive(items, now)
	return next, Event{Type: EventAdded, Item: &item, State: next}, nil
}

func reduceRemove(s State, id string, now time.Time) (State, Event, error) {
	idx := s.Find(id)
	if idx < 0 {
		return s, Event{}, model.ErrItemNotFound
	}

	items := s.clone().Items
	removed := items[idx]
	items = append(items[:idx], items[idx+1:]...)

	next := derive(items, now)
	return next, Event{Type: EventRemoved, Item: &removed, State: next}, nil
}

func reduceUpdate(s State, id string, qty int, limits Limits, now time.Time) (State, Event, error) {
	idx := s.Find(id)
	if idx < 0 {
		return s, Event{}, model.ErrItemNotFound
	}

	items := s.clone().Items
	item := items[idx]
	if err := ValidateQuantity(qty, item.MaxStock, limits); err != nil {
		return s, Event{}, err
	}
	item.Quantity = qty
	items[idx] = item

	next := derive(items, now)
	return next, Event{Type: EventUpdated, Item: &item, State: next}, nil
}
