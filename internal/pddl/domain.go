package pddl

import (
	"fmt"

	"github.com/carloacu/goalplanner/internal/action"
	"github.com/carloacu/goalplanner/internal/domain"
	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/carloacu/goalplanner/internal/perrors"
)

// ParseDomain parses a full `(define (domain NAME) ...)` file into a
// *domain.Domain. Blocks are processed in dependency order regardless of
// their order in src: :types, then :constants, then :predicates and
// :functions, then everything that references them (:timeless,
// :action, :durative-action, :axiom). :requirements is accepted and
// otherwise ignored — every requirement this grammar can express is
// unconditionally supported, so there is nothing to gate on.
func ParseDomain(src string) (*domain.Domain, error) {
	top, err := readSingleTopLevel(src)
	if err != nil {
		return nil, err
	}
	if top.Head() != "define" {
		return nil, parseError(top.Offset, "expected (define (domain NAME) ...)")
	}
	children := top.Tail()
	if len(children) == 0 || children[0].Head() != "domain" {
		return nil, parseError(top.Offset, "missing (domain NAME) header")
	}
	header := children[0]
	nameAtoms := header.Tail()
	if len(nameAtoms) != 1 || !nameAtoms[0].IsAtom {
		return nil, parseError(header.Offset, "expected a single domain name atom")
	}
	name := nameAtoms[0].Atom
	blocks := children[1:]

	ont := ontology.New()
	for _, block := range blocks {
		if block.Head() == ":types" {
			if err := parseTypesBlock(block, ont); err != nil {
				return nil, err
			}
		}
	}

	constants := ontology.NewSetOfEntities()
	for _, block := range blocks {
		if block.Head() == ":constants" {
			if err := parseConstantsBlock(block, ont, constants); err != nil {
				return nil, err
			}
		}
	}

	for _, block := range blocks {
		switch block.Head() {
		case ":predicates":
			if err := parsePredicatesBlock(block, ont); err != nil {
				return nil, err
			}
		case ":functions":
			if err := parseFunctionsBlock(block, ont); err != nil {
				return nil, err
			}
		}
	}

	dom := domain.New(ont)
	dom.Name = name
	dom.Constants = constants
	ctx := newParseCtx(ont, constants)

	axiomCounter := 0
	for _, block := range blocks {
		switch block.Head() {
		case ":requirements", ":types", ":constants", ":predicates", ":functions":
			// already handled above
		case ":timeless":
			for _, item := range block.Tail() {
				fact, ok, err := parseGroundFact(item, ctx)
				if err != nil {
					return nil, err
				}
				if ok {
					dom.Timeless = append(dom.Timeless, fact)
				}
			}
		case ":action":
			id, a, err := parseActionBlock(block, ctx)
			if err != nil {
				return nil, err
			}
			if err := dom.AddAction(id, a); err != nil {
				return nil, err
			}
		case ":durative-action":
			id, a, err := parseDurativeActionBlock(block, ctx)
			if err != nil {
				return nil, err
			}
			if err := dom.AddAction(id, a); err != nil {
				return nil, err
			}
		case ":axiom":
			ax, err := parseAxiomBlock(block, ctx)
			if err != nil {
				return nil, err
			}
			dom.AddAxiom(fmt.Sprintf("axiom_%d", axiomCounter), ax)
			axiomCounter++
		default:
			return nil, parseError(block.Offset, "unknown domain block %q", block.Head())
		}
	}

	return dom, nil
}

func readSingleTopLevel(src string) (SExpr, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return SExpr{}, err
	}
	exprs, err := ReadAll(toks)
	if err != nil {
		return SExpr{}, err
	}
	if len(exprs) != 1 {
		return SExpr{}, perrors.NewParse(fmt.Sprintf("expected exactly one top-level form, got %d", len(exprs)), "", -1)
	}
	return exprs[0], nil
}

func parseTypesBlock(block SExpr, ont *ontology.Ontology) error {
	groups, err := splitByDashRaw(block.Tail())
	if err != nil {
		return err
	}
	pending := groups
	for len(pending) > 0 {
		var next []rawTypeGroup
		progressed := false
		for _, g := range pending {
			parentKnown := true
			if g.ParentName != "" {
				if _, ok := ont.TypeByName(g.ParentName); !ok {
					parentKnown = false
				}
			}
			if !parentKnown {
				next = append(next, g)
				continue
			}
			for _, n := range g.Names {
				if _, exists := ont.TypeByName(n); exists {
					continue
				}
				if _, err := ont.AddType(n, g.ParentName); err != nil {
					return err
				}
			}
			progressed = true
		}
		if !progressed {
			return parseError(block.Offset, "unresolvable type hierarchy: unknown parent type referenced")
		}
		pending = next
	}
	return nil
}

func parseConstantsBlock(block SExpr, ont *ontology.Ontology, constants *ontology.SetOfEntities) error {
	slots, err := splitByDash(block.Tail(), resolveTypeName(ont))
	if err != nil {
		return err
	}
	for _, sl := range slots {
		if err := constants.Add(ontology.Entity{Value: sl.Name, Type: sl.Type}); err != nil {
			return err
		}
	}
	return nil
}

func parsePredicatesBlock(block SExpr, ont *ontology.Ontology) error {
	for _, decl := range block.Tail() {
		if decl.IsAtom || len(decl.List) == 0 || !decl.List[0].IsAtom {
			return parseError(decl.Offset, "expected a predicate declaration")
		}
		name := decl.List[0].Atom
		params, err := parseParamItems(decl.List[1:], ont)
		if err != nil {
			return err
		}
		if _, err := ont.AddPredicate(name, params, ontology.NoType); err != nil {
			return err
		}
	}
	return nil
}

func parseFunctionsBlock(block SExpr, ont *ontology.Ontology) error {
	items := block.Tail()
	var pending []SExpr
	i := 0
	declare := func(fluentType ontology.TypeID) error {
		for _, decl := range pending {
			if decl.IsAtom || len(decl.List) == 0 || !decl.List[0].IsAtom {
				return parseError(decl.Offset, "expected a function declaration")
			}
			name := decl.List[0].Atom
			params, err := parseParamItems(decl.List[1:], ont)
			if err != nil {
				return err
			}
			if _, err := ont.AddPredicate(name, params, fluentType); err != nil {
				return err
			}
		}
		pending = nil
		return nil
	}
	for i < len(items) {
		item := items[i]
		if item.IsAtom && item.Atom == "-" {
			if i+1 >= len(items) || !items[i+1].IsAtom {
				return parseError(item.Offset, "dangling '-' in :functions block")
			}
			tid, err := resolveTypeName(ont)(items[i+1].Atom)
			if err != nil {
				return err
			}
			if err := declare(tid); err != nil {
				return err
			}
			i += 2
			continue
		}
		pending = append(pending, item)
		i++
	}
	return declare(ont.NumberType())
}

func parseActionBlock(block SExpr, ctx *parseCtx) (string, action.Action, error) {
	children := block.Tail()
	if len(children) == 0 || !children[0].IsAtom {
		return "", action.Action{}, parseError(block.Offset, "expected an action name")
	}
	name := children[0].Atom

	var params []ontology.Parameter
	if paramsExpr, ok := block.Find(":parameters"); ok {
		var err error
		params, err = parseParameterList(paramsExpr, ctx.ont)
		if err != nil {
			return "", action.Action{}, err
		}
	}
	actionCtx := ctx.withParams(params)

	a := action.Action{ID: name, Parameters: params}

	if preExpr, ok := block.Find(":precondition"); ok {
		c, err := parseCondition(preExpr, actionCtx)
		if err != nil {
			return "", action.Action{}, err
		}
		a.Precondition = c
	}
	if effExpr, ok := block.Find(":effect"); ok {
		m, err := parseWSM(effExpr, actionCtx)
		if err != nil {
			return "", action.Action{}, err
		}
		a.Effect.WorldStateModification = m
	}
	return name, a, nil
}
