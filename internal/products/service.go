package products

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/karma-pos/karma/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	List(ctx context.Context, ids []int64) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Insert(ctx context.Context, input CreateProductInput) (Product, error)
	Update(ctx context.Context, id int64, patch UpdateProductInput) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort records catalog mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// CreateProductInput carries a new catalog row.
type CreateProductInput struct {
	Nombre    string  `json:"nombre" validate:"required"`
	Precio    float64 `json:"precio" validate:"gte=0"`
	Stock     int64   `json:"stock" validate:"gte=0"`
	Descuento float64 `json:"descuento" validate:"gte=0,lte=100"`
	Categoria string  `json:"categoria"`
}

// UpdateProductInput patches an existing row; nil fields stay untouched.
type UpdateProductInput struct {
	Nombre    *string  `json:"nombre,omitempty"`
	Precio    *float64 `json:"precio,omitempty" validate:"omitempty,gte=0"`
	Stock     *int64   `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Descuento *float64 `json:"descuento,omitempty" validate:"omitempty,gte=0,lte=100"`
	Categoria *string  `json:"categoria,omitempty"`
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron consultar los productos", err)
	}
	return products, nil
}

// Get loads one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, s.mapStoreError(err)
	}
	return product, nil
}

// Create inserts a catalog row.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	product, err := s.repo.Insert(ctx, input)
	if err != nil {
		return Product{}, shared.WrapError(shared.KindStorage, "No se pudo crear el producto", err)
	}
	s.recordAudit(ctx, "product:create", product.ID, map[string]any{"nombre": product.Nombre})
	return product, nil
}

// Update patches a catalog row.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateProductInput) (Product, error) {
	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Product{}, s.mapStoreError(err)
	}
	s.recordAudit(ctx, "product:update", product.ID, nil)
	return product, nil
}

// Delete removes a catalog row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapStoreError(err)
	}
	s.recordAudit(ctx, "product:delete", id, nil)
	return nil
}

// LabelFor builds the label payload for one product.
func (s *Service) LabelFor(ctx context.Context, id int64) (Label, Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return Label{}, Product{}, err
	}
	return buildLabel(product), product, nil
}

// Labels builds labels for the given ids, or the whole catalog when empty.
func (s *Service) Labels(ctx context.Context, ids []int64) ([]Label, error) {
	list, err := s.repo.List(ctx, ids)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron generar las etiquetas", err)
	}
	labels := make([]Label, 0, len(list))
	for _, product := range list {
		labels = append(labels, buildLabel(product))
	}
	return labels, nil
}

func buildLabel(product Product) Label {
	return Label{
		ProductoID: product.ID,
		Nombre:     product.Nombre,
		Precio:     product.Precio,
		QRCode:     LabelCode(product.ID),
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorName(ctx),
		Action:   action,
		Entity:   "productos",
		EntityID: formatID(id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Service) mapStoreError(err error) error {
	if errors.Is(err, ErrProductNotFound) {
		return shared.NewError(shared.KindNotFound, "Producto no encontrado")
	}
	return shared.WrapError(shared.KindStorage, "Error de acceso a datos", err)
}
