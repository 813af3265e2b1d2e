// Package domain defines the persistence models for users, ingredients,
// recipes and the join tables that relate them. These types are mapped with
// GORM and form the entity store of the recipes backend.
package domain

import (
	"time"
)

// User is a registered account. Email is the login identity; both email and
// username are globally unique.
//
// Fields:
//   - Password: bcrypt hash, never serialized.
//   - Avatar: storage key of the uploaded avatar; empty when unset.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Email     string    `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_users_email"`
	Username  string    `json:"username"   gorm:"type:varchar(150);not null;uniqueIndex:ux_users_username"`
	FirstName string    `json:"first_name" gorm:"type:varchar(150);not null"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(150);not null"`
	Password  string    `json:"-"          gorm:"type:varchar(128);not null"`
	Avatar    string    `json:"-"          gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Ingredient is a catalog entry shared by all recipes. The (name, unit) pair
// is unique. SearchName holds the case-folded name used for prefix lookups.
type Ingredient struct {
	ID              uint   `json:"id"               gorm:"primaryKey"`
	Name            string `json:"name"             gorm:"type:varchar(100);not null;index;uniqueIndex:ux_ingredient_name_unit,priority:1"`
	MeasurementUnit string `json:"measurement_unit" gorm:"type:varchar(100);not null;uniqueIndex:ux_ingredient_name_unit,priority:2"`
	SearchName      string `json:"-"                gorm:"type:varchar(100);not null;default:'';index:idx_ingredient_search"`
}

// TableName returns the database table name for Ingredient.
func (Ingredient) TableName() string { return "ingredients" }

// Recipe is authored and exclusively owned by a single user.
//
// Fields:
//   - Image: storage key of the dish picture.
//   - CookingTime: minutes, at least 1 (enforced by DB constraint).
//   - PubDate: set once at creation; drives the default newest-first order.
//   - Ingredients: quantity lines, cascade-deleted with the recipe.
type Recipe struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	AuthorID    uint      `json:"author_id"    gorm:"not null;index"`
	Name        string    `json:"name"         gorm:"type:varchar(100);not null"`
	Image       string    `json:"-"            gorm:"type:varchar(255);not null;default:''"`
	Text        string    `json:"text"         gorm:"type:text;not null"`
	CookingTime int       `json:"cooking_time" gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1"`
	PubDate     time.Time `json:"pub_date"     gorm:"not null;autoCreateTime;index:idx_recipes_pub_date"`
	UpdatedAt   time.Time `json:"-"`

	Author      User               `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Ingredients []RecipeIngredient `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }

// RecipeIngredient is one quantity line of a recipe. An ingredient appears at
// most once per recipe and the amount is a positive integer.
type RecipeIngredient struct {
	ID           uint `json:"id"     gorm:"primaryKey"`
	RecipeID     uint `json:"-"      gorm:"not null;uniqueIndex:ux_recipe_ingredient,priority:1"`
	IngredientID uint `json:"-"      gorm:"not null;index;uniqueIndex:ux_recipe_ingredient,priority:2"`
	Amount       int  `json:"amount" gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1"`

	Ingredient Ingredient `json:"-" gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RecipeIngredient.
func (RecipeIngredient) TableName() string { return "recipe_ingredients" }

// Favorite marks a recipe as a user's favorite. One row per (user, recipe).
type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_favorite_user_recipe,priority:1"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:ux_favorite_user_recipe,priority:2"`
	CreatedAt time.Time `gorm:"not null"`

	User   User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// ShoppingCart places a recipe in a user's cart. One row per (user, recipe).
type ShoppingCart struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_cart_user_recipe,priority:1"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:ux_cart_user_recipe,priority:2"`
	CreatedAt time.Time `gorm:"not null"`

	User   User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ShoppingCart.
func (ShoppingCart) TableName() string { return "shopping_cart" }

// Subscription links a subscriber (UserID) to an author. A user cannot
// subscribe to themselves (enforced by DB constraint).
type Subscription struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_subscription_user_author,priority:1;check:chk_subscriptions_not_self,user_id <> author_id"`
	AuthorID  uint      `gorm:"not null;index;uniqueIndex:ux_subscription_user_author,priority:2"`
	CreatedAt time.Time `gorm:"not null"`

	User   User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Author User `gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCart{},
		&Subscription{},
		&RevokedToken{},
	}
}
