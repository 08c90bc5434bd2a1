package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/karma-pos/karma/internal/shared"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Insert(ctx context.Context, p Payment) (Payment, error)
	Get(ctx context.Context, id int64) (Payment, error)
	ListBySale(ctx context.Context, ventaID int64) ([]Payment, error)
	MethodTotals(ctx context.Context, from, to time.Time) ([]MethodTotal, error)
	ListMethods(ctx context.Context) ([]Method, error)
	InsertMethod(ctx context.Context, m Method) (Method, error)
}

// Service implements payment operations. There is no gateway round trip:
// recording the row is the whole payment.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a payments service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Process records a single payment.
func (s *Service) Process(ctx context.Context, input CreatePaymentInput) (Payment, error) {
	if input.VentaID == nil {
		return Payment{}, shared.NewError(shared.KindValidation, "Falta el campo requerido: venta_id")
	}
	if input.MetodoPago == nil || *input.MetodoPago == "" {
		return Payment{}, shared.NewError(shared.KindValidation, "Falta el campo requerido: metodo_pago")
	}
	if input.Monto == nil {
		return Payment{}, shared.NewError(shared.KindValidation, "Falta el campo requerido: monto")
	}
	if *input.Monto <= 0 {
		return Payment{}, shared.NewError(shared.KindValidation, "El monto debe ser mayor que cero")
	}

	fecha := time.Now().UTC()
	if input.Fecha != nil {
		fecha = *input.Fecha
	}
	if input.Referencia == "" {
		// every recorded payment gets a receipt reference even without a gateway
		input.Referencia = uuid.NewString()
	}
	stored, err := s.repo.Insert(ctx, Payment{
		VentaID:    *input.VentaID,
		MetodoPago: *input.MetodoPago,
		Monto:      *input.Monto,
		Fecha:      fecha,
		Referencia: input.Referencia,
	})
	if err != nil {
		if errors.Is(err, ErrSaleNotFound) {
			return Payment{}, shared.NewError(shared.KindNotFound, "Venta no encontrada")
		}
		return Payment{}, shared.WrapError(shared.KindStorage, "No se pudo registrar el pago", err)
	}
	return stored, nil
}

// Get fetches one payment.
func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return Payment{}, shared.NewError(shared.KindNotFound, "Pago no encontrado")
		}
		return Payment{}, shared.WrapError(shared.KindStorage, "No se pudo obtener el pago", err)
	}
	return p, nil
}

// SummarizeSale lists payments against one sale with the paid total.
func (s *Service) SummarizeSale(ctx context.Context, ventaID int64) (SaleSummary, error) {
	pagos, err := s.repo.ListBySale(ctx, ventaID)
	if err != nil {
		return SaleSummary{}, shared.WrapError(shared.KindStorage, "No se pudieron obtener los pagos", err)
	}
	summary := SaleSummary{Pagos: pagos, CantidadPagos: len(pagos)}
	for _, p := range pagos {
		summary.TotalPagado += p.Monto
	}
	return summary, nil
}

// ProcessSplit records each leg of a split payment independently. A failed
// leg never rolls back the legs already recorded.
func (s *Service) ProcessSplit(ctx context.Context, ventaID int64, legs []SplitPaymentInput) (SplitResult, error) {
	result := SplitResult{Outcomes: make([]SplitOutcome, 0, len(legs))}
	for _, leg := range legs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := s.processLeg(ctx, ventaID, leg)
		if outcome.Exito {
			result.Exitosos++
			result.TotalProcesado += outcome.Pago.Monto
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func (s *Service) processLeg(ctx context.Context, ventaID int64, leg SplitPaymentInput) SplitOutcome {
	if leg.MetodoPago == nil || *leg.MetodoPago == "" || leg.Monto == nil {
		return SplitOutcome{Exito: false, Error: "Falta método de pago o monto"}
	}
	pago, err := s.Process(ctx, CreatePaymentInput{
		VentaID:    &ventaID,
		MetodoPago: leg.MetodoPago,
		Monto:      leg.Monto,
		Fecha:      leg.Fecha,
		Referencia: leg.Referencia,
	})
	if err != nil {
		s.logger.Warn("split payment leg failed",
			slog.Int64("venta_id", ventaID),
			slog.String("metodo_pago", *leg.MetodoPago),
			slog.Any("error", err))
		return SplitOutcome{Exito: false, Error: shared.UserSafeMessage(err)}
	}
	return SplitOutcome{Exito: true, Pago: &pago}
}

// SplitMessage formats the split run summary line.
func SplitMessage(exitosos, total int) string {
	return fmt.Sprintf("Procesados %d de %d pagos", exitosos, total)
}

// MethodTotals exposes per-method aggregation for reports.
func (s *Service) MethodTotals(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	totals, err := s.repo.MethodTotals(ctx, from, to)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron agregar los pagos", err)
	}
	return totals, nil
}

// Methods returns configured payment methods, falling back to the built-in
// set while none are configured.
func (s *Service) Methods(ctx context.Context) ([]Method, error) {
	methods, err := s.repo.ListMethods(ctx)
	if err != nil {
		s.logger.Warn("listing payment methods failed, serving defaults", slog.Any("error", err))
		return DefaultMethods, nil
	}
	if len(methods) == 0 {
		return DefaultMethods, nil
	}
	return methods, nil
}

// AddMethod registers a custom payment method.
func (s *Service) AddMethod(ctx context.Context, m Method) (Method, error) {
	if m.ID == "" || m.Nombre == "" {
		return Method{}, shared.NewError(shared.KindValidation, "Falta id o nombre del método de pago")
	}
	stored, err := s.repo.InsertMethod(ctx, m)
	if err != nil {
		if errors.Is(err, ErrMethodExists) {
			return Method{}, shared.NewError(shared.KindConflict, "El método de pago ya existe")
		}
		return Method{}, shared.WrapError(shared.KindStorage, "No se pudo crear el método de pago", err)
	}
	return stored, nil
}

// ListBySale exposes raw payment rows for the sales module.
func (s *Service) ListBySale(ctx context.Context, ventaID int64) ([]Payment, error) {
	pagos, err := s.repo.ListBySale(ctx, ventaID)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron obtener los pagos", err)
	}
	return pagos, nil
}
