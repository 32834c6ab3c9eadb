package catalog

type Product struct {
	ID          int64   `json:"id"`
	StoreID     int64   `json:"storeId"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"` // minor units
	Stock       int     `json:"stock"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Store struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Open     bool    `json:"open"`
}
