package models

// Category is a forum category. A page store carries the full category list
// so the view can render breadcrumbs and the category picker.
type Category struct {
	ID          int    `json:"id" yaml:"id" db:"category_id" bson:"categoryId"`
	Name        string `json:"name" yaml:"name" db:"name" bson:"name"`
	Slug        string `json:"slug" yaml:"slug" db:"slug" bson:"slug"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" db:"description" bson:"description,omitempty"`
	Position    int    `json:"position" yaml:"position,omitempty" db:"position" bson:"position"`
	IsDefault   bool   `json:"isDefaultCategory,omitempty" yaml:"isDefault,omitempty" db:"is_default" bson:"isDefault,omitempty"`
}

// CloneCategories copies a category list.
func CloneCategories(categories []Category) []Category {
	if categories == nil {
		return nil
	}
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
