package catalog

type CreateBookRequest struct {
	Title         string `json:"title" binding:"required"`
	Author        string `json:"author" binding:"required"`
	ISBN          string `json:"isbn" binding:"required"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"published_year"`
	Description   string `json:"description"`
	TotalCopies   int    `json:"total_copies" binding:"required,min=1"`
}

type UpdateBookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"published_year"`
	Description   string `json:"description"`
	TotalCopies   int    `json:"total_copies" binding:"omitempty,min=1"`
}

type ListBooksQuery struct {
	Query  string `form:"q"`
	Genre  string `form:"genre"`
	Author string `form:"author"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
