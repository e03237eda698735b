package technical

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// уровень значимости для проверки коинтеграции
const cointegrationAlpha = 0.05

// минимальная длина ряда для теста Дики-Фуллера
const minADFObservations = 20

var (
	errADFShortSeries = errors.New("ряд слишком короткий для теста Дики-Фуллера")
	errADFSingular    = errors.New("вырожденная матрица регрессии")
)

// ADFResult результат расширенного теста Дики-Фуллера
type ADFResult struct {
	Stat   float64 // t-статистика коэффициента при лаговом уровне
	PValue float64 // аппроксимация МакКиннона
	Lags   int     // число лагов разностей, выбранное по AIC
	NObs   int     // число наблюдений в итоговой регрессии
}

// Stationary сообщает, отвергается ли единичный корень на уровне alpha
func (r ADFResult) Stationary(alpha float64) bool {
	return r.PValue < alpha
}

// olsFit результат МНК-регрессии
type olsFit struct {
	coef []float64
	ssr  float64
	nobs int
	k    int
	xtxi *mat.SymDense
}

// ols оценивает y = X·b методом наименьших квадратов через разложение Холецкого
func ols(x *mat.Dense, y *mat.VecDense) (*olsFit, error) {
	nobs, k := x.Dims()
	if nobs <= k {
		return nil, errADFShortSeries
	}
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errADFSingular
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var b mat.VecDense
	if err := chol.SolveVecTo(&b, &xty); err != nil {
		return nil, fmt.Errorf("%w: %v", errADFSingular, err)
	}
	var xtxi mat.SymDense
	if err := chol.InverseTo(&xtxi); err != nil {
		return nil, fmt.Errorf("%w: %v", errADFSingular, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &b)
	ssr := 0.0
	for i := 0; i < nobs; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		ssr += r * r
	}

	coef := make([]float64, k)
	for i := range coef {
		coef[i] = b.AtVec(i)
	}
	return &olsFit{coef: coef, ssr: ssr, nobs: nobs, k: k, xtxi: &xtxi}, nil
}

// aic информационный критерий Акаике для гауссовой регрессии
func (f *olsFit) aic() float64 {
	n := float64(f.nobs)
	return n*(math.Log(2*math.Pi)+math.Log(f.ssr/n)+1) + 2*float64(f.k)
}

// tstat t-статистика коэффициента i
func (f *olsFit) tstat(i int) float64 {
	sigma2 := f.ssr / float64(f.nobs-f.k)
	se := math.Sqrt(sigma2 * f.xtxi.At(i, i))
	if se == 0 {
		return math.NaN()
	}
	return f.coef[i] / se
}

// adfRegression строит регрессию dx[t] на [1, x[t], dx[t-1..t-lag]]
// для t от first до конца ряда разностей
func adfRegression(x, dx []float64, lag, first int) (*mat.Dense, *mat.VecDense) {
	nobs := len(dx) - first
	k := 2 + lag
	design := mat.NewDense(nobs, k, nil)
	y := mat.NewVecDense(nobs, nil)
	for r := 0; r < nobs; r++ {
		t := first + r
		y.SetVec(r, dx[t])
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, 1+j, dx[t-j])
		}
	}
	return design, y
}

// ADF выполняет расширенный тест Дики-Фуллера с константой.
// Число лагов выбирается по AIC на общей выборке, затем модель
// переоценивается на полной выборке для выбранного лага.
func ADF(series []float64) (ADFResult, error) {
	x := make([]float64, 0, len(series))
	for _, v := range series {
		if Available(v) {
			x = append(x, v)
		}
	}
	n := len(x)
	if n < minADFObservations {
		return ADFResult{}, errADFShortSeries
	}

	maxlag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 2; maxlag > limit {
		maxlag = limit
	}
	if maxlag < 0 {
		return ADFResult{}, errADFShortSeries
	}

	dx := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dx[i-1] = x[i] - x[i-1]
	}

	bestLag, bestAIC := -1, math.Inf(1)
	for lag := 0; lag <= maxlag; lag++ {
		design, y := adfRegression(x, dx, lag, maxlag)
		fit, err := ols(design, y)
		if err != nil {
			continue
		}
		if aic := fit.aic(); aic < bestAIC {
			bestLag, bestAIC = lag, aic
		}
	}
	if bestLag < 0 {
		return ADFResult{}, errADFSingular
	}

	design, y := adfRegression(x, dx, bestLag, bestLag)
	fit, err := ols(design, y)
	if err != nil {
		return ADFResult{}, err
	}
	stat := fit.tstat(1)
	if !Available(stat) {
		return ADFResult{}, errADFSingular
	}
	return ADFResult{
		Stat:   stat,
		PValue: mackinnonP(stat),
		Lags:   bestLag,
		NObs:   fit.nobs,
	}, nil
}

// коэффициенты аппроксимации МакКиннона (1994) для модели с константой
var (
	mackinnonSmall = []float64{2.1659, 1.4412, 0.038269}
	mackinnonLarge = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

const (
	mackinnonMax  = 2.74
	mackinnonMin  = -18.83
	mackinnonStar = -1.61
)

// mackinnonP аппроксимирует p-значение статистики Дики-Фуллера
func mackinnonP(stat float64) float64 {
	switch {
	case stat > mackinnonMax:
		return 1
	case stat < mackinnonMin:
		return 0
	}
	coef := mackinnonLarge
	if stat <= mackinnonStar {
		coef = mackinnonSmall
	}
	poly, pow := 0.0, 1.0
	for _, c := range coef {
		poly += c * pow
		pow *= stat
	}
	return distuv.UnitNormal.CDF(poly)
}

// Cointegrated проверяет коинтеграцию двух рядов по методу Энгла-Грейнджера:
// остаток регрессии a на b должен быть стационарным. Ошибка теста означает
// отсутствие коинтеграции.
func Cointegrated(a, b []float64) (bool, float64) {
	beta := OLSBeta(a, b)
	res, err := ADF(Spread(a, b, beta))
	if err != nil {
		return false, beta
	}
	return res.Stationary(cointegrationAlpha), beta
}
